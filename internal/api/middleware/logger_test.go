package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Logger(), Recovery())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	r.GET("/index", func(c *gin.Context) {
		var rows []int
		n := len(c.Query("n")) + 3
		c.JSON(http.StatusOK, rows[n])
	})
	return r
}

func TestLoggerSetsRequestID(t *testing.T) {
	r := newEngine()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	id := rec.Header().Get(RequestIDHeader)
	if id == "" || rec.Body.String() != id {
		t.Errorf("expected a generated request id echoed in header and context, got %q / %q", id, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("incoming request id should be kept, got %q", got)
	}
}

func TestRecoveryReturns500(t *testing.T) {
	rec := httptest.NewRecorder()
	newEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("panic expected 500, got %d", rec.Code)
	}
}

func TestRecoveryLogsRuntimeErrorMessage(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	rec := httptest.NewRecorder()
	newEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/index", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic expected 500, got %d", rec.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "index out of range") {
		t.Errorf("panic message missing from log: %s", out)
	}
	if !strings.Contains(out, `"stack"`) {
		t.Errorf("stack trace missing from log: %s", out)
	}
}
