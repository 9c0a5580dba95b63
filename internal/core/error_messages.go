package core

// error_messages.go maps technical errors to messages a user can act on.
//
// Each message carries a code for support reference:
//
//	VAL002 - Invalid number: a cost cell is not numeric after the currency
//	         symbol is removed
//	VAL005 - Column not found: a planned column is not in the file header
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Unknown encoding
//	FILE004 - No file provided
//	FILE005 - Empty file
//	CLN001 - Invalid cost error policy
//	CLN002 - Invalid cost threshold
//	EXP001 - Invalid export table name
//	EXP002 - Export requested without a database
//	JOB001 - Too many cleaning jobs
//	DB004  - Database unreachable
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//	ERR000 - Anything else
//
// Sentinel errors are matched with errors.Is first; message patterns catch
// errors that only exist as text (multipart parsing, database drivers).

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// File errors shared by the loader and the HTTP surface.
var (
	ErrEmptyFile       = errors.New("empty file")
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrNoFile          = errors.New("no file provided")
	ErrFileTooLarge    = errors.New("file too large")
)

// ErrExportDisabled is returned when export is requested but no database
// is configured.
var ErrExportDisabled = errors.New("database export is not configured")

// UserMessage is an error description for end users.
type UserMessage struct {
	Message string // what happened
	Action  string // what to do about it
	Code    string // support reference
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrInvalidNumber, UserMessage{
		Message: "A cost value is not a number",
		Action:  "Check the cost column, or re-run with on_cost_error=skip or keep",
		Code:    "VAL002",
	}},
	{ErrColumnNotFound, UserMessage{
		Message: "Expected column not found in CSV",
		Action:  "Check the column names configured for cleaning against the file header",
		Code:    "VAL005",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{ErrUnknownEncoding, UserMessage{
		Message: "The requested text encoding is not supported",
		Action:  "Use an IANA name such as ISO-8859-1, windows-1252 or UTF-8",
		Code:    "FILE003",
	}},
	{ErrNoFile, UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file",
		Code:    "FILE004",
	}},
	{ErrEmptyFile, UserMessage{
		Message: "The file is empty",
		Action:  "Please provide a CSV file with a header row",
		Code:    "FILE005",
	}},
	{ErrInvalidPolicy, UserMessage{
		Message: "Unknown cost error policy",
		Action:  "Use abort, skip or keep",
		Code:    "CLN001",
	}},
	{ErrInvalidThreshold, UserMessage{
		Message: "The cost threshold is not a valid number",
		Action:  "Use a non-negative number, or 0 to disable capping",
		Code:    "CLN002",
	}},
	{ErrExportDisabled, UserMessage{
		Message: "Database export is not configured",
		Action:  "Set DATABASE_URL, or clean without exporting",
		Code:    "EXP002",
	}},
	{ErrTooManyJobs, UserMessage{
		Message: "Too many files are being cleaned right now",
		Action:  "Please wait a moment and try again",
		Code:    "JOB001",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "UPL005",
	}},
}

var errorPatterns = []errorPattern{
	{"request body too large", UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{"invalid csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with consistent columns",
		Code:    "FILE002",
	}},
	{"wrong number of fields", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure every row has the same number of columns as the header",
		Code:    "FILE002",
	}},
	{"invalid table name", UserMessage{
		Message: "The export table name is not allowed",
		Action:  "Use lower-case letters, digits and underscores, optionally prefixed by a schema",
		Code:    "EXP001",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError returns the user message for err. A nil error maps to the zero
// UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
