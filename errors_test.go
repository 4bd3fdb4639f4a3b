package loginmanager

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(nil))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(ErrUnauthenticated))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(fmt.Errorf("wrapped: %w", ErrUnauthenticated)))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(ErrMissingMiddleware))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("other")))
	assert.Equal(t, http.StatusTeapot, StatusFor(&HTTPError{Status: http.StatusTeapot}))
}

func TestHTTPError(t *testing.T) {
	inner := errors.New("inner")
	err := &HTTPError{Status: http.StatusForbidden, Message: "Forbidden.", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "403 Forbidden.: inner", err.Error())
	assert.Equal(t, "400 Bad.", (&HTTPError{Status: 400, Message: "Bad."}).Error())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrUnauthenticated)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "No authentication.\n", rec.Body.String())

	rec = httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("query failed: %w", errors.New("password=hunter2")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error.\n", rec.Body.String())

	rec = httptest.NewRecorder()
	WriteError(rec, &HTTPError{Status: http.StatusBadRequest})
	assert.Equal(t, "Bad request.\n", rec.Body.String())
}
