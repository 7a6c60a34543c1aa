package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCustomError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"missing servings", fmt.Errorf("scale: %w", &MissingServingsError{RecipeID: "rcp_1"}), ErrCodeMissingServings, http.StatusUnprocessableEntity},
		{"validation", NewValidationError("bad target"), ErrCodeInvalidRequest, http.StatusBadRequest},
		{"not found", fmt.Errorf("get: %w", ErrRecordNotFound), ErrCodeNotFound, http.StatusNotFound},
		{"conflict", fmt.Errorf("create: %w", ErrConflict), ErrCodeConflict, http.StatusConflict},
		{"external", fmt.Errorf("%w: timeout", ErrExternalService), ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), ErrCodeInternalError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := ToCustomError(tt.err)
			assert.Equal(t, tt.code, ce.Code)
			assert.Equal(t, tt.status, ce.Status)
		})
	}
	assert.Nil(t, ToCustomError(nil))
}

func TestMissingServingsError(t *testing.T) {
	err := fmt.Errorf("menu: %w", &MissingServingsError{RecipeID: "rcp_1", RecipeName: "Chili"})
	assert.True(t, IsMissingServings(err))
	assert.Contains(t, err.Error(), `"Chili"`)
	assert.False(t, IsMissingServings(errors.New("other")))
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"":                 SeverityMild,
		"Moderate":         SeverityModerate,
		" severe ":         SeveritySevere,
		"life threatening": SeverityLifeThreatening,
	}
	for in, want := range tests {
		got, err := ParseSeverity(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSeverity("deadly")
	assert.True(t, IsValidationError(err))
}
