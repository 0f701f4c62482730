package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

func serveError(t *testing.T, err error) (int, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { RespondError(c, zap.NewNop(), err) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	status, body := serveError(t, fmt.Errorf("load session 3: %w", errors.New("dial tcp 10.0.0.5:3306: connection refused")))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, body.Success)
	assert.Equal(t, "Terjadi kesalahan pada server", body.Message)
	assert.Nil(t, body.Errors)
}

func TestRespondErrorExposesBusinessErrors(t *testing.T) {
	status, body := serveError(t, apperr.New(apperr.CodeConflict, "Pakan sudah ada dalam sesi ini: Rumput").
		WithDetails(map[string]any{"feeds": "Rumput"}))

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Pakan sudah ada dalam sesi ini: Rumput", body.Message)
	assert.Equal(t, map[string]any{"feeds": "Rumput"}, body.Errors)

	status, _ = serveError(t, apperr.Wrap(apperr.CodeDependency, errors.New("meta down"), "unable to send message"))
	assert.Equal(t, http.StatusServiceUnavailable, status)
}
