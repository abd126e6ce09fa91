package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mypostelma/internal/apierror"
	"mypostelma/internal/middleware"
	"mypostelma/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &service.Error{Kind: service.ErrValidation, Msg: "montant invalide", Field: "amount"}, http.StatusBadRequest, apierror.CodeValidation},
		{"not found", &service.Error{Kind: service.ErrNotFound, Msg: "session de caisse introuvable"}, http.StatusNotFound, apierror.CodeNotFound},
		{"conflict", &service.Error{Kind: service.ErrConflict, Msg: "déjà ouverte"}, http.StatusConflict, apierror.CodeConflict},
		{"invalid state", fmt.Errorf("record: %w", &service.Error{Kind: service.ErrInvalidState, Msg: "fermée"}), http.StatusConflict, apierror.CodeInvalidState},
		{"storage", &service.Error{Kind: service.ErrStorageUnavailable, Msg: "indisponible"}, http.StatusServiceUnavailable, apierror.CodeStorageUnavailable},
		{"unclassified", errors.New("pq: relation does not exist"), http.StatusInternalServerError, apierror.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(middleware.ErrorHandler())
			r.GET("/", func(c *gin.Context) { respondError(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.status, w.Code)

			var body apierror.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotContains(t, body.Detail, "pq:")
		})
	}
}

func TestRespondError_ValidationCarriesField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, &service.Error{Kind: service.ErrValidation, Msg: "trop de décimales", Field: "amount"})

	var body apierror.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "trop de décimales", body.Fields["amount"])
}
