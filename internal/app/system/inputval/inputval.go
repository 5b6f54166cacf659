// Package inputval provides input validation using waffle/pantry/validate.
//
// It registers the account format rules (fullname, username, emailshape,
// strongpassword) on a shared validator. Define an input struct with
// validate tags, populate it from the request, and call Validate to get
// client-facing messages.
//
// Example:
//
//	type AccountInput struct {
//	    FullName string `json:"fullName" validate:"fullname" label:"Full name"`
//	    Email    string `json:"email" validate:"emailshape" label:"Email"`
//	}
//
//	if res := inputval.Validate(input); res.HasErrors() {
//	    return apierror.BadRequest(res.First())
//	}
package inputval

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dalemusser/playtweet/internal/app/system/authutil"
	"github.com/dalemusser/waffle/pantry/validate"
)

// Client-facing messages for the account format rules.
const (
	MsgAllFieldsRequired = "All fields are required"
	MsgFullName          = "Full name can only contain alphabets and spaces"
	MsgUsername          = "Username can only contain alphanumeric characters and underscores"
	MsgEmail             = "Invalid email format"
)

// emailPart excludes ASCII whitespace, vertical tab, every Unicode
// separator (NBSP, U+2028, ...) and the BOM, as well as '@'.
const emailPart = `[^\s\v\p{Z}\x{FEFF}@]+`

var (
	emailRe    = regexp.MustCompile(`^` + emailPart + `@` + emailPart + `\.` + emailPart + `$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9]+([_]?[a-zA-Z0-9])*$`)
	fullNameRe = regexp.MustCompile(`^[a-zA-Z]+(([',. -][a-zA-Z ])?[a-zA-Z]*)*$`)
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// Messages returns every error message in order.
func (r *Result) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	return strings.Join(r.Messages(), "; ")
}

var (
	customValidator *validate.Validator
	validatorOnce   sync.Once
)

func stringRule(check func(string) bool) func(any) bool {
	return func(value any) bool {
		s, ok := value.(string)
		return ok && check(s)
	}
}

// getValidator returns the singleton validator with custom rules.
func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		customValidator = validate.New(validate.WithStopOnFirstError())
		customValidator.RegisterRuleFunc("fullname", stringRule(IsValidFullName), "fullname")
		customValidator.RegisterRuleFunc("username", stringRule(IsValidUsername), "username")
		customValidator.RegisterRuleFunc("emailshape", stringRule(IsValidEmail), "emailshape")
		customValidator.RegisterRuleFunc("strongpassword", stringRule(IsValidPassword), "strongpassword")
	})
	return customValidator
}

// Validate validates a struct and returns a Result with user-friendly errors.
// The struct should have `validate` tags for rules and optional `label` tags
// for user-friendly field names.
//
// Custom validation rules (registered by this package):
//   - fullname: letters with single ' , . - or space separators
//   - username: alphanumeric runs joined by single underscores
//   - emailshape: local@domain.tld with no whitespace
//   - strongpassword: see authutil.ValidatePassword
func Validate(s any) *Result {
	result := &Result{}

	err := getValidator().Struct(s)
	if err == nil {
		return result
	}

	labels := getFieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: formatMessage(label, e.Rule, e.Param),
			})
		}
	}

	return result
}

// AllPresent reports whether every value is non-blank.
func AllPresent(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// getFieldLabels extracts the "label" tag from struct fields, keyed by the
// json name when present.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		label := field.Tag.Get("label")
		if label == "" {
			continue
		}
		labels[field.Name] = label
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			if name := strings.Split(jsonTag, ",")[0]; name != "" && name != "-" {
				labels[name] = label
			}
		}
	}

	return labels
}

// formatMessage creates a client-facing message for a validation rule.
func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return MsgAllFieldsRequired
	case "fullname":
		return MsgFullName
	case "username":
		return MsgUsername
	case "email", "emailshape":
		return MsgEmail
	case "strongpassword":
		return authutil.PasswordRules()
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	default:
		return label + " is invalid."
	}
}

// IsValidEmail checks the local@domain.tld shape with no whitespace.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidUsername checks for alphanumeric runs optionally joined by single
// underscores (no leading, trailing, or doubled underscores).
func IsValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

// IsValidFullName checks for letter runs separated by single apostrophes,
// commas, periods, hyphens, or spaces.
func IsValidFullName(name string) bool {
	return fullNameRe.MatchString(name)
}

// IsValidPassword reports whether the password satisfies the format rules.
func IsValidPassword(password string) bool {
	return authutil.ValidatePassword(password) == nil
}
