package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ValidationError("bad").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFoundError("missing").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, InternalError("boom", nil).HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, ExternalError("store", nil).HTTPStatus())
}

func TestErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ExternalError("store unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "store unreachable")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithField(t *testing.T) {
	err := ValidationError("bad input").WithField("field", "count")
	assert.Equal(t, "count", err.Context["field"])

	resp := err.ToResponse()
	assert.Equal(t, "bad input", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, "count", resp.Context["field"])
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	structured := NotFoundError("missing")
	assert.Same(t, structured, AsStructuredError(structured))

	wrapped := fmt.Errorf("handler: %w", structured)
	assert.Same(t, structured, AsStructuredError(wrapped))

	plain := stderrors.New("boom")
	converted := AsStructuredError(plain)
	assert.Equal(t, TypeInternal, converted.Type)
	assert.ErrorIs(t, converted, plain)
}

func TestMiddlewareConvertsStructuredErrors(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/fail", func(c echo.Context) error {
		return InternalError("counter store failed", stderrors.New("redis down"))
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "counter store failed")
	// The cause never leaks to clients.
	assert.NotContains(t, rec.Body.String(), "redis down")
}

func TestMiddlewarePassesEchoErrorsThrough(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())

	req := httptest.NewRequest(http.MethodGet, "/no-such-route", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareIgnoresSuccess(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/ok", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
