package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"blogspace/internal/config"
	"blogspace/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-identity-secret-0123456789abcdef"

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Env:               "test",
		Port:              "0",
		IdentityJWTSecret: testSecret,
		IdentityIssuer:    "https://id.example.com",
		IdentityAudience:  "authenticated",
		AdminEmails:       "root@example.com",
		FeatureFlags:      "post_cache=off",
		CommentMaxLength:  500,
		ViewRecordTimeout: time.Second,
	}
}

// newTestServer builds a fully wired server on an in-memory database
// without Redis.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s, err := NewServerWithDeps(testConfig(), db, nil)
	require.NoError(t, err)
	// view writes must land before the database closes
	t.Cleanup(s.postService.Wait)

	return s, s.App()
}

type tokenOpts struct {
	issuer   string
	audience string
	ttl      time.Duration
	method   jwt.SigningMethod
	secret   string
	metadata map[string]any
}

func signToken(t *testing.T, sub, email string, opts *tokenOpts) string {
	t.Helper()
	o := tokenOpts{
		issuer:   "https://id.example.com",
		audience: "authenticated",
		ttl:      time.Hour,
		method:   jwt.SigningMethodHS256,
		secret:   testSecret,
	}
	if opts != nil {
		if opts.issuer != "" {
			o.issuer = opts.issuer
		}
		if opts.audience != "" {
			o.audience = opts.audience
		}
		if opts.ttl != 0 {
			o.ttl = opts.ttl
		}
		if opts.method != nil {
			o.method = opts.method
		}
		if opts.secret != "" {
			o.secret = opts.secret
		}
		o.metadata = opts.metadata
	}

	claims := jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"iss":   o.issuer,
		"aud":   o.audience,
		"exp":   time.Now().Add(o.ttl).Unix(),
	}
	if o.metadata != nil {
		claims["user_metadata"] = o.metadata
	}
	str, err := jwt.NewWithClaims(o.method, claims).SignedString([]byte(o.secret))
	require.NoError(t, err)
	return str
}

// doRequest sends a JSON request and returns the status and raw body.
func doRequest(t *testing.T, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func newPaginationApp() *fiber.App {
	app := fiber.New()
	app.Get("/p", func(c *fiber.Ctx) error {
		return c.JSON(parsePagination(c, 10))
	})
	return app
}
