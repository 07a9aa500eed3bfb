package responses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/coursevault-backend/pkg/errors"
)

func decodeFailure(t *testing.T, rec *httptest.ResponseRecorder) Problem {
	t.Helper()
	var body Failure
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccessWrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"title": "Go in practice"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"title":"Go in practice"}}`, rec.Body.String())
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())
}

func TestWriteErrorStatusAndExposure(t *testing.T) {
	cases := []struct {
		code        pkgerrors.Code
		status      int
		showMessage bool
	}{
		{pkgerrors.CodeValidation, http.StatusBadRequest, true},
		{pkgerrors.CodeAlreadyOwned, http.StatusConflict, true},
		{pkgerrors.CodeNotFree, http.StatusPaymentRequired, true},
		{pkgerrors.CodeInvalidTransition, http.StatusUnprocessableEntity, true},
		{pkgerrors.CodeNotFound, http.StatusNotFound, true},
		{pkgerrors.CodeDependency, http.StatusServiceUnavailable, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, pkgerrors.New(tc.code, "course c-42 is archived"))

			assert.Equal(t, tc.status, rec.Code)
			problem := decodeFailure(t, rec)
			assert.Equal(t, string(tc.code), problem.Code)
			assert.Equal(t, tc.showMessage, problem.Message == "course c-42 is archived")
		})
	}
}

func TestWriteErrorIncludesValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "invalid body").
		WithDetails(map[string]string{"email": "required"})
	WriteError(context.Background(), nil, rec, err)

	problem := decodeFailure(t, rec)
	assert.Equal(t, map[string]any{"email": "required"}, problem.Details)
}

func TestWriteErrorHidesUntypedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, fmt.Errorf("query users: %w", errors.New("connection reset")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decodeFailure(t, rec)
	assert.Equal(t, string(pkgerrors.CodeInternal), problem.Code)
	assert.NotContains(t, problem.Message, "connection reset")
	assert.Nil(t, problem.Details)
}

func TestWriteErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
