package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-visitors/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		apperr.ErrMissingCustomRange:                       http.StatusBadRequest,
		apperr.ErrVisitorNotFound:                          http.StatusNotFound,
		apperr.ErrInvalidCredentials:                       http.StatusUnauthorized,
		apperr.ErrForbidden:                                http.StatusForbidden,
		apperr.Storage("select", errors.New("conn reset")): http.StatusInternalServerError,
		apperr.ErrReportDelivery:                           http.StatusInternalServerError,
		fmt.Errorf("wrapped: %w", apperr.ErrTicketTypeNotFound): http.StatusNotFound,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestWriteError_HidesServerDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "Failed to load visitor", apperr.Storage("select visitor", errors.New("dial tcp 10.0.0.1:5432")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotContains(t, resp.Error, "10.0.0.1")
}

func TestWriteError_KeepsClientDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "Invalid report", apperr.ErrMissingCustomRange)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "custom report requires start and end dates")
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","ticket_price":1}`))
	err := DecodeJSON(req, &dst)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestValidate_UsesJSONNames(t *testing.T) {
	type input struct {
		FullName string `json:"full_name" validate:"required"`
		Email    string `json:"email" validate:"omitempty,email"`
	}
	err := Validate(input{Email: "nope"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "full_name is required")
	assert.Contains(t, err.Error(), "email must be a valid email")

	assert.NoError(t, Validate(input{FullName: "Ada"}))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2024-03-05T10:30:00Z", time.Local)
	require.NoError(t, err)
	assert.Equal(t, 10, d.UTC().Hour())

	_, err = ParseDate("05/03/2024", time.UTC)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	none, err := ParseOptionalDate("", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEndOfDay(t *testing.T) {
	eod := EndOfDay(time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 5, 23, 59, 59, 999999999, time.UTC), eod)
}
