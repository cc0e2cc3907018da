package core

// # Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes that
// users can quote when reporting a problem.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source too large: The lookup table exceeds the size limit
//	         Patterns: "source too large"
//	SRC002 - Encoding error: The lookup table is not valid UTF-8
//	         Patterns: "encoding error"
//	SRC003 - Empty source: The lookup table contains no brand rows
//	         Patterns: "empty source"
//	SRC004 - Load busy: Another reload is already running
//	         Patterns: "too many loads"
//	SRC005 - Fetch failed: The lookup table could not be fetched
//	         Patterns: "unexpected status", "no such file"
//
// # Lookup Errors (LKP001-LKP099)
//
//	LKP001 - Unknown brand: The brand is not in the lookup table
//	         Patterns: "unknown brand"
//	LKP002 - Invalid serial: The serial number is not a number
//	         Patterns: "invalid serial"
//	LKP003 - Not loaded: The lookup table has not been loaded yet
//	         Patterns: "not loaded"
//
// # Database Errors (DB004-DB006)
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	         Patterns: "context canceled"
//	REQ002 - Request timed out
//	         Patterns: "context deadline exceeded"
//	REQ003 - Missing parameter: A required query parameter was not supplied
//	         Patterns: "missing parameter"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the logs for the technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Source Errors (SRC001-SRC005)
	// =========================================================================
	{
		pattern: "source too large",
		msg: UserMessage{
			Message: "The lookup table exceeds the size limit",
			Action:  "Raise SOURCE_MAX_SIZE or trim the export",
			Code:    "SRC001",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "The lookup table contains invalid characters",
			Action:  "Export the sheet as UTF-8 or enable SOURCE_SANITIZE_UTF8",
			Code:    "SRC002",
		},
	},
	{
		pattern: "empty source",
		msg: UserMessage{
			Message: "The lookup table contains no brand rows",
			Action:  "Check that the export includes data below the header",
			Code:    "SRC003",
		},
	},
	{
		pattern: "too many loads",
		msg: UserMessage{
			Message: "A reload is already in progress",
			Action:  "Please wait a moment and try again",
			Code:    "SRC004",
		},
	},
	{
		pattern: "unexpected status",
		msg: UserMessage{
			Message: "The lookup table could not be fetched",
			Action:  "Check that SOURCE_URL is reachable",
			Code:    "SRC005",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "The lookup table could not be fetched",
			Action:  "Check that SOURCE_PATH exists",
			Code:    "SRC005",
		},
	},

	// =========================================================================
	// Lookup Errors (LKP001-LKP003)
	// =========================================================================
	{
		pattern: "unknown brand",
		msg: UserMessage{
			Message: "Brand not found",
			Action:  "Pick a brand from the list",
			Code:    "LKP001",
		},
	},
	{
		pattern: "invalid serial",
		msg: UserMessage{
			Message: "Serial number is not a number",
			Action:  "Enter digits only; commas are allowed",
			Code:    "LKP002",
		},
	},
	{
		pattern: "not loaded",
		msg: UserMessage{
			Message: "The lookup table is still loading",
			Action:  "Please try again in a few moments",
			Code:    "LKP003",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ003)
	// Checked before the database timeout pattern, which would also match.
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again later",
			Code:    "REQ002",
		},
	},
	{
		pattern: "missing parameter",
		msg: UserMessage{
			Message: "A required parameter is missing",
			Action:  "Supply both a brand and a serial number",
			Code:    "REQ003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB006)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned. A nil error maps to the
// zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
