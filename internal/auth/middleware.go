package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dcse/searchd/internal/config"
	"github.com/gofiber/fiber/v3"
)

// excludedPaths are paths that bypass authentication (e.g., health checks)
var excludedPaths = map[string]bool{
	"/health": true,
}

// isExcludedPath checks if the request path should bypass authentication
func isExcludedPath(path string) bool {
	return excludedPaths[path]
}

// NewMiddleware creates a new authentication middleware based on settings
func NewMiddleware(settings config.AuthSettings) (fiber.Handler, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(c fiber.Ctx) error {
			return c.Next()
		}, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return withExclusions(basicAuthHandler(settings.Basic)), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return withExclusions(apiKeyHandler(settings.APIKeys)), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

// withExclusions wraps an auth handler to skip auth for excluded paths
func withExclusions(authHandler fiber.Handler) fiber.Handler {
	return func(c fiber.Ctx) error {
		if isExcludedPath(c.Path()) {
			return c.Next()
		}
		return authHandler(c)
	}
}

func basicAuthHandler(settings config.BasicAuthSettings) fiber.Handler {
	return func(c fiber.Ctx) error {
		user, pass, ok := parseBasicAuth(c.Get(fiber.HeaderAuthorization))
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(settings.Username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(settings.Password)) == 1
		if !ok || !userMatch || !passMatch {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="Restricted"`)
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}
		return c.Next()
	}
}

func apiKeyHandler(apiKeys []string) fiber.Handler {
	return func(c fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		valid := false
		for _, validKey := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
				valid = true
				break
			}
		}

		if !valid {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}
		return c.Next()
	}
}

// parseBasicAuth decodes an Authorization header of the form "Basic <b64>".
func parseBasicAuth(header string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	user, pass, ok = strings.Cut(string(decoded), ":")
	return user, pass, ok
}
