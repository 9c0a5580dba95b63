package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	_, parseErr := StripCurrency("£abc")

	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "cost parse error maps to VAL002",
			err:         fmt.Errorf("line 7: %w", parseErr),
			wantCode:    "VAL002",
			wantMessage: "A cost value is not a number",
		},
		{
			name:        "missing column maps to VAL005",
			err:         fmt.Errorf("cost column: %w", ErrColumnNotFound),
			wantCode:    "VAL005",
			wantMessage: "Expected column not found in CSV",
		},
		{
			name:        "unknown encoding maps to FILE003",
			err:         fmt.Errorf("%w: %q", ErrUnknownEncoding, "klingon"),
			wantCode:    "FILE003",
			wantMessage: "The requested text encoding is not supported",
		},
		{
			name:        "empty file maps to FILE005",
			err:         ErrEmptyFile,
			wantCode:    "FILE005",
			wantMessage: "The file is empty",
		},
		{
			name:        "bad threshold maps to CLN002",
			err:         fmt.Errorf("%w: %q", ErrInvalidThreshold, "-5"),
			wantCode:    "CLN002",
			wantMessage: "The cost threshold is not a valid number",
		},
		{
			name:        "export table name maps to EXP001",
			err:         errors.New(`invalid table name: "APC"`),
			wantCode:    "EXP001",
			wantMessage: "The export table name is not allowed",
		},
		{
			name:        "busy limiter maps to JOB001",
			err:         ErrTooManyJobs,
			wantCode:    "JOB001",
			wantMessage: "Too many files are being cleaned right now",
		},
		{
			name:        "deadline maps to UPL005",
			err:         fmt.Errorf("clean: %w", context.DeadlineExceeded),
			wantCode:    "UPL005",
			wantMessage: "Request timed out",
		},
		{
			name:        "csv reader error matched by pattern",
			err:         errors.New("record on line 3: wrong number of fields"),
			wantCode:    "FILE002",
			wantMessage: "File is not a valid CSV",
		},
		{
			name:        "case insensitive pattern matching",
			err:         errors.New("dial tcp: CONNECTION REFUSED"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrNoFile)

	expected := "No file was selected (Code: FILE004). Please select a CSV file"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", ErrInvalidPolicy, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
