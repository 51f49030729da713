package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := E(CodeUnavailable, "DocumentService.Upload", "failed to store file", inner)

	assert.ErrorIs(t, err, inner)
	assert.True(t, IsCode(err, CodeUnavailable))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.Contains(t, err.Error(), "DocumentService.Upload")
	assert.Contains(t, err.Error(), "disk full")
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", E(CodeNotFound, "DocumentService.Get", "document not found", nil))
	assert.True(t, IsCode(err, CodeNotFound))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument: http.StatusBadRequest,
		CodeUnauthorized:    http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeUnavailable:     http.StatusServiceUnavailable,
		CodeInternal:        http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(E(code, "Op", "msg", nil)))
	}

	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
