package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewStorageError("Failed to save submission", stderrors.New("connection reset"))
	assert.Equal(t, "storage: Failed to save submission (connection reset)", err.Error())

	err = NewNotFoundError("Submission not found")
	assert.Equal(t, "not_found: Submission not found", err.Error())
}

func TestConstructorsStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		typ    ErrorType
	}{
		{"validation", NewValidationError("bad", nil), http.StatusBadRequest, ErrorTypeValidation},
		{"authentication", NewAuthenticationError("no token"), http.StatusUnauthorized, ErrorTypeAuthentication},
		{"authorization", NewAuthorizationError("not yours"), http.StatusForbidden, ErrorTypeAuthorization},
		{"team not found", NewTeamNotFoundError("x@y.com"), http.StatusNotFound, ErrorTypeTeamNotFound},
		{"ambiguous", NewAmbiguousTeamError("x@y.com", []string{"A", "B"}), http.StatusConflict, ErrorTypeAmbiguousTeam},
		{"conflict", NewConflictError("dup"), http.StatusConflict, ErrorTypeConflict},
		{"upload", NewUploadError("upload failed", nil), http.StatusBadGateway, ErrorTypeUpload},
		{"internal", NewInternalError("oops", nil), http.StatusInternalServerError, ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.typ, tt.err.Type)
		})
	}
}

func TestIsTypeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", NewTeamNotFoundError("nobody@x.com"))

	assert.True(t, IsType(wrapped, ErrorTypeTeamNotFound))
	assert.False(t, IsType(wrapped, ErrorTypeAmbiguousTeam))
	assert.False(t, IsType(stderrors.New("plain"), ErrorTypeTeamNotFound))
}

func TestFrom(t *testing.T) {
	appErr := NewConflictError("duplicate")
	assert.Same(t, appErr, From(fmt.Errorf("wrap: %w", appErr)))

	plain := stderrors.New("plain")
	converted := From(plain)
	assert.Equal(t, ErrorTypeInternal, converted.Type)
	assert.ErrorIs(t, converted, plain)
}
