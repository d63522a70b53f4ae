package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCors(t *testing.T) {
	testCases := []struct {
		name           string
		path           string
		origin         string
		userAgent      string
		expectedStatus int
	}{
		{
			name:           "allowed origin",
			path:           "/workouts",
			origin:         "http://localhost:8080",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "allowed dev origin",
			path:           "/workouts",
			origin:         "http://localhost:3000",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "curl",
			path:           "/workouts",
			userAgent:      "curl/8.4.0",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "export fetched directly",
			path:           "/workouts/export",
			origin:         "http://somewhere.else",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown origin",
			path:           "/workouts",
			origin:         "http://evil.example.com",
			userAgent:      "Mozilla/5.0",
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := Cors()(okHandler())

			req, err := http.NewRequest("GET", tc.path, nil)
			require.NoError(t, err)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.userAgent != "" {
				req.Header.Set("User-Agent", tc.userAgent)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedStatus == http.StatusOK {
				assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Methods"))
			}
		})
	}
}
