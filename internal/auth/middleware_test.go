package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dcse/searchd/internal/config"
	"github.com/gofiber/fiber/v3"
)

func newTestApp(t *testing.T, settings config.AuthSettings) *fiber.App {
	t.Helper()

	middleware, err := NewMiddleware(settings)
	if err != nil {
		t.Fatalf("Failed to create middleware: %v", err)
	}

	app := fiber.New()
	app.Use(middleware)
	app.Get("/search", func(c fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/health", func(c fiber.Ctx) error { return c.SendString("healthy") })
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestNewMiddleware_None(t *testing.T) {
	app := newTestApp(t, config.AuthSettings{Type: config.AuthTypeNone})

	resp := doRequest(t, app, httptest.NewRequest("GET", "/search", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestNewMiddleware_EmptyType(t *testing.T) {
	app := newTestApp(t, config.AuthSettings{Type: ""})

	resp := doRequest(t, app, httptest.NewRequest("GET", "/search", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestNewMiddleware_UnknownType(t *testing.T) {
	if _, err := NewMiddleware(config.AuthSettings{Type: "oauth"}); err == nil {
		t.Error("Expected error for unknown auth type")
	}
}

func TestNewMiddleware_BasicAuth(t *testing.T) {
	app := newTestApp(t, config.AuthSettings{
		Type:  config.AuthTypeBasic,
		Basic: config.BasicAuthSettings{Username: "admin", Password: "secret"},
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid credentials", basicHeader("admin", "secret"), http.StatusOK},
		{"wrong password", basicHeader("admin", "nope"), http.StatusUnauthorized},
		{"wrong user", basicHeader("root", "secret"), http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Basic !!!notbase64!!!", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/search", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp := doRequest(t, app, req)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestNewMiddleware_BasicAuth_RequiresCredentials(t *testing.T) {
	_, err := NewMiddleware(config.AuthSettings{Type: config.AuthTypeBasic})
	if err == nil {
		t.Error("Expected error for basic auth without credentials")
	}
}

func TestNewMiddleware_APIKey(t *testing.T) {
	app := newTestApp(t, config.AuthSettings{
		Type:    config.AuthTypeAPIKey,
		APIKeys: []string{"key-one", "key-two"},
	})

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"first key", "key-one", http.StatusOK},
		{"second key", "key-two", http.StatusOK},
		{"invalid key", "key-three", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/search", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			resp := doRequest(t, app, req)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestNewMiddleware_APIKey_RequiresKeys(t *testing.T) {
	_, err := NewMiddleware(config.AuthSettings{Type: config.AuthTypeAPIKey})
	if err == nil {
		t.Error("Expected error for apikey auth without keys")
	}
}

func TestNewMiddleware_HealthBypassesAuth(t *testing.T) {
	app := newTestApp(t, config.AuthSettings{
		Type:    config.AuthTypeAPIKey,
		APIKeys: []string{"key-one"},
	})

	resp := doRequest(t, app, httptest.NewRequest("GET", "/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected health to bypass auth, got %d", resp.StatusCode)
	}
}
