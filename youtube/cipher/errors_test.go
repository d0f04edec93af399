package cipher

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without details",
			err:      NewError(ErrCodeTimestampNotFound, "signature timestamp not found"),
			expected: "TIMESTAMP_NOT_FOUND: signature timestamp not found",
		},
		{
			name:     "with details",
			err:      NewError(ErrCodeContainerDefinitionNotFound, "container definition not found", "Xy"),
			expected: "CONTAINER_DEFINITION_NOT_FOUND: container definition not found (Xy)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestErrorMarshalJSON(t *testing.T) {
	e := NewError(ErrCodeNoOperationsFound, "no cipher operations found")
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if decoded["code"] != ErrCodeNoOperationsFound {
		t.Errorf("code = %v, want %v", decoded["code"], ErrCodeNoOperationsFound)
	}
	if s, _ := decoded["error"].(string); !strings.Contains(s, "no cipher operations found") {
		t.Errorf("error field = %v, want message included", decoded["error"])
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		err       error
		predicate func(error) bool
		expected  bool
	}{
		{NewError(ErrCodeTimestampNotFound, "m"), IsTimestampNotFound, true},
		{NewError(ErrCodeDecipherFunctionNotFound, "m"), IsTimestampNotFound, false},
		{NewError(ErrCodeDecipherFunctionNotFound, "m"), IsDecipherFunctionNotFound, true},
		{NewError(ErrCodeContainerNameNotFound, "m"), IsContainerNotFound, true},
		{NewError(ErrCodeContainerDefinitionNotFound, "m"), IsContainerNotFound, true},
		{NewError(ErrCodeNoOperationsFound, "m"), IsNoOperationsFound, true},
		{errors.New("plain"), IsParseFailure, false},
		{NewError(ErrCodeNoOperationsFound, "m"), IsParseFailure, true},
	}

	for i, tt := range tests {
		if got := tt.predicate(tt.err); got != tt.expected {
			t.Errorf("case %d: predicate(%v) = %v, want %v", i, tt.err, got, tt.expected)
		}
	}
}

func TestErrorPredicatesUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("resolve manifest: %w", NewError(ErrCodeTimestampNotFound, "signature timestamp not found"))
	if !IsTimestampNotFound(wrapped) {
		t.Error("predicate should see through fmt.Errorf wrapping")
	}
	if !IsParseFailure(wrapped) {
		t.Error("wrapped parse failure should still be a parse failure")
	}
}
