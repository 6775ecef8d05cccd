//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/musicclub/apiserver/config"
	"github.com/musicclub/apiserver/internal/server"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	baseURL string
	db      *sql.DB
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("musicclub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		return 1
	}
	defer func() {
		_ = container.Terminate(context.Background())
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
		return 1
	}
	if err := runMigrations(dsn); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		return 1
	}

	db, err = sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		return 1
	}

	mr, err := miniredis.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start miniredis: %v\n", err)
		return 1
	}
	defer mr.Close()

	cfg := config.Config{
		Env: "test",
		Session: config.SessionConfig{
			Secret:     "e2e-secret",
			TTL:        24 * time.Hour,
			CookieName: "mc.sid",
			Backend:    config.SessionBackendRedis,
		},
	}
	srv, err := server.NewWithDeps(cfg, server.Deps{
		DB:    db,
		Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build server: %v\n", err)
		return 1
	}

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	baseURL = ts.URL

	code := m.Run()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	return code
}

func runMigrations(dsn string) error {
	_, file, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(file), "..", "..", "db", "migrations")

	migrator, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

// client is one browser: it keeps its own session cookie.
type client struct {
	t    *testing.T
	http *http.Client
}

func newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, baseURL+path, &payload)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// register signs up a fresh account and returns its id.
func (c *client) register(email string) int {
	c.t.Helper()
	var resp struct {
		User struct {
			ID int `json:"id"`
		} `json:"user"`
	}
	status := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"first_name": "Test",
		"last_name":  "User",
		"email":      email,
		"password":   "password123",
	}, &resp)
	require.Equal(c.t, http.StatusCreated, status)
	return resp.User.ID
}

func (c *client) login(email string) {
	c.t.Helper()
	status := c.do(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": "password123",
	}, nil)
	require.Equal(c.t, http.StatusOK, status)
}

func (c *client) role() string {
	c.t.Helper()
	var resp struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.Equal(c.t, http.StatusOK, c.do(http.MethodGet, "/api/auth/me", nil, &resp))
	return resp.User.Role
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@example.com", prefix, time.Now().UnixNano())
}

// promote writes the role directly, bypassing the API.
func promote(t *testing.T, userID int, role string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, "UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2", role, userID)
	require.NoError(t, err)
}

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
