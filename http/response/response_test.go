package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "admissions-crm/errors"
	"admissions-crm/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("lead 3: %w", repository.ErrNotFound)))
	assert.Equal(t, http.StatusNotFound, StatusFor(apperrors.NewNotFoundError("x")))
	assert.Equal(t, http.StatusConflict, StatusFor(apperrors.NewConflictError("full")))
	assert.Equal(t, http.StatusBadRequest, StatusFor(apperrors.NewInvalidParamsError("bad")))
	assert.Equal(t, http.StatusForbidden, StatusFor(apperrors.NewForbiddenError("no")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
}

func TestError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("pq: connection refused"), "Error fetching leads")

	var body StandardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Error fetching leads", body.Error)

	rec = httptest.NewRecorder()
	Error(rec, apperrors.NewConflictError("counselor at capacity"), "ignored")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "counselor at capacity", body.Error)
}

func TestErrorWithData_KeepsPartialResult(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorWithData(rec, errors.New("tx aborted"), "Sweep finished with errors", map[string]int{"checked": 3})

	var body struct {
		Status string         `json:"status"`
		Error  string         `json:"error"`
		Data   map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "Sweep finished with errors", body.Error)
	assert.Equal(t, 3, body.Data["checked"])
}
