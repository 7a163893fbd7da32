package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/cryptopulse/internal/logger"
)

func TestToString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{123, ""},
	}
	for _, tc := range cases {
		if got := toString(tc.in); got != tc.want {
			t.Fatalf("toString(%v)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		name   string
		status int
		path   string
		want   zerolog.Level
	}{
		{"ok", 200, "/api/v1/summary", zerolog.InfoLevel},
		{"bad filter", 400, "/api/v1/summary", zerolog.WarnLevel},
		{"not ready", 503, "/api/v1/metrics/daily", zerolog.ErrorLevel},
		{"health check", 200, "/healthz", zerolog.DebugLevel},
		{"degraded readiness", 503, "/readyz", zerolog.ErrorLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := levelFor(tc.status, tc.path); got != tc.want {
				t.Fatalf("levelFor(%d,%q)=%v want %v", tc.status, tc.path, got, tc.want)
			}
		})
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.Init()
	router := gin.New()
	router.Use(RequestID(), RequestLogger())
	router.GET("/api/v1/summary", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"total_trades": 2}) })
	router.GET("/api/v1/assets/top", func(c *gin.Context) {
		AbortWithError(c, http.StatusBadRequest, "invalid limit", errors.New("limit must be between 1 and 1000"))
	})

	cases := []struct {
		path string
		want int
	}{
		{"/api/v1/summary?symbol=BTC-USD", http.StatusOK},
		{"/api/v1/assets/top?limit=0", http.StatusBadRequest},
		{"/api/v1/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s: status %d, want %d", tc.path, w.Code, tc.want)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s: missing X-Request-ID header", tc.path)
		}
	}
}
