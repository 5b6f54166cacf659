// Package jsonutil provides helper functions for JSON API responses.
//
// Successful responses use the envelope
//
//	{"statusCode": 200, "data": ..., "message": "...", "success": true}
//
// and failures use
//
//	{"success": false, "message": "...", "errors": [...]}
package jsonutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Response is the success envelope.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Success writes data wrapped in the success envelope.
func Success(w http.ResponseWriter, status int, data any, message string) {
	JSON(w, status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, data any, message string) {
	Success(w, http.StatusOK, data, message)
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, data any, message string) {
	Success(w, http.StatusCreated, data, message)
}

// Error writes the failure envelope. A nil details slice is written as [].
func Error(w http.ResponseWriter, status int, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	JSON(w, status, ErrorResponse{
		Success: false,
		Message: message,
		Errors:  details,
	})
}

// Unauthorized writes a 401 failure envelope.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, message)
}

// NotFound writes a 404 failure envelope.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// MsgInvalidBody is the client message for a malformed JSON body.
const MsgInvalidBody = "Invalid request body"

// ErrEmptyBody is returned by Decode when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// Decode reads and decodes JSON from the request body into v.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return err
}
