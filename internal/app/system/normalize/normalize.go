// Package normalize provides helper functions for consistent string normalization
// across the application. Use these helpers instead of scattered strings.ToLower
// and strings.TrimSpace calls to ensure consistent behavior.
package normalize

import "strings"

// Email normalizes an email address by trimming whitespace and converting to lowercase.
// This is the canonical way to normalize emails before storage or comparison.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username normalizes a username the same way as an email: usernames are
// stored lowercase and compared case-insensitively.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name normalizes a name by trimming whitespace.
// Use text.Fold() for case-insensitive comparison keys.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// LoginIdentifier normalizes whatever a user typed to log in (username or
// email) into the key used for lookups and rate limiting.
func LoginIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
