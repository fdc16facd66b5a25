package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvukovic/teamline-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const TestJWTSecret = "test-secret-key-for-testing-only"

// TestJWTService returns a JWT service configured for tests
func TestJWTService() *services.JWTService {
	return services.NewJWTService(TestJWTSecret, 15*time.Minute, 7*24*time.Hour)
}

// GenerateTestToken creates a valid access token for the given user
func GenerateTestToken(t *testing.T, userID uuid.UUID, email string) string {
	t.Helper()
	jwtService := TestJWTService()
	pair, err := jwtService.GenerateTokenPair(userID, email, "user")
	require.NoError(t, err)
	return pair.AccessToken
}

// AuthHeader returns the Authorization header value for a token
func AuthHeader(token string) string {
	return "Bearer " + token
}

// HTTPTestClient wraps an http.Handler for making test requests
type HTTPTestClient struct {
	handler http.Handler
	t       *testing.T
}

func NewHTTPTestClient(t *testing.T, handler http.Handler) *HTTPTestClient {
	return &HTTPTestClient{handler: handler, t: t}
}

// Request performs an HTTP request against the handler and returns the recorder
func (c *HTTPTestClient) Request(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reqBody = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *HTTPTestClient) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	return c.Request(http.MethodGet, path, nil, headers)
}

func (c *HTTPTestClient) POST(path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	return c.Request(http.MethodPost, path, body, headers)
}

func (c *HTTPTestClient) PATCH(path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	return c.Request(http.MethodPatch, path, body, headers)
}

func (c *HTTPTestClient) DELETE(path string, headers map[string]string) *httptest.ResponseRecorder {
	return c.Request(http.MethodDelete, path, nil, headers)
}

// ParseJSON decodes the response body into v
func ParseJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// AssertStatus checks the response status code
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rec.Code, "unexpected status, body: %s", rec.Body.String())
}

// AssertJSON checks that a JSON response field has the expected value
func AssertJSON(t *testing.T, rec *httptest.ResponseRecorder, field string, expected any) {
	t.Helper()
	var body map[string]any
	ParseJSON(t, rec, &body)
	assert.Equal(t, expected, body[field])
}
