package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func preflight(r http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/messages/x/generate", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		origins []string
		origin  string
		allowed bool
	}{
		{name: "default_dev_origin", origin: "http://localhost:5173", allowed: true},
		{name: "configured_origin", origins: []string{"https://chat.example.com"}, origin: "https://chat.example.com", allowed: true},
		{name: "configured_replaces_defaults", origins: []string{"https://chat.example.com"}, origin: "http://localhost:5173"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := gin.New()
			r.Use(CORS(tc.origins))
			r.POST("/api/messages/:id/generate", func(c *gin.Context) { c.Status(http.StatusAccepted) })

			rec := preflight(r, tc.origin)
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tc.allowed && got != tc.origin {
				t.Fatalf("allow-origin=%q want=%q (status %d)", got, tc.origin, rec.Code)
			}
			if !tc.allowed && got != "" {
				t.Fatalf("unexpected allow-origin=%q", got)
			}
		})
	}
}
