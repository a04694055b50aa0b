package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"catalog/internal/config"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// setupEnv points the configuration at a fresh SQLite file and seeds it.
func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("DB_NAME", dbPath)
	t.Setenv("DB_AUTO_MIGRATE", "true")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := loadConfig()
	require.NoError(t, err)
	db, err := database.Open(context.Background(), cfg.DB)
	require.NoError(t, err)
	defer database.Close(db)

	name, category, qty := "Widget", "Hardware", 42
	gadget := "Gadget"
	products := []models.Product{
		{
			ProductID:       "A100",
			ProductName:     &name,
			Category:        &category,
			QuantityInStock: &qty,
			Price:           decimal.NewNullDecimal(decimal.RequireFromString("9.99")),
		},
		{ProductID: "B200", ProductName: &gadget},
	}
	require.NoError(t, db.Create(&products).Error)
	return dbPath
}

func newTestApp(t *testing.T, cfg *config.Config) *fiber.App {
	t.Helper()
	db, err := database.Open(context.Background(), cfg.DB)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	service := services.NewCatalogService(repositories.NewGORMProductRepository(db), nil)
	return NewApp(cfg, service)
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewApp(t *testing.T) {
	setupEnv(t)
	cfg, err := loadConfig()
	require.NoError(t, err)
	app := newTestApp(t, cfg)

	t.Run("HealthCheck", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "\"status\":\"healthy\"")
	})

	t.Run("SearchForm", func(t *testing.T) {
		form := url.Values{"search": {""}, "product_id": {"A100"}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "<td>A100</td>")
		assert.Contains(t, string(body), "9.99")
		assert.NotContains(t, string(body), "<td>B200</td>")
	})

	t.Run("APIWithoutAuth", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var products []models.Product
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
		assert.Len(t, products, 2)
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "catalog_queries_total")
	})
}

func TestNewApp_MetricsDisabled(t *testing.T) {
	setupEnv(t)
	t.Setenv("METRICS_ENABLED", "false")
	cfg, err := loadConfig()
	require.NoError(t, err)
	app := newTestApp(t, cfg)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewApp_UnauthenticatedAccess(t *testing.T) {
	setupEnv(t)
	t.Setenv("JWT_SECRET", "test_jwt_secret")
	cfg, err := loadConfig()
	require.NoError(t, err)
	app := newTestApp(t, cfg)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "Expected Unauthorized for /products without token")

	// The HTML front end stays public.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueryCommand(t *testing.T) {
	setupEnv(t)

	t.Run("SearchByID", func(t *testing.T) {
		stdout, _, err := runCommand(t, "query", "--id", "A100")
		require.NoError(t, err)
		assert.Contains(t, stdout, "PRODUCT ID")
		assert.Contains(t, stdout, "A100")
		assert.Contains(t, stdout, "Widget")
		assert.NotContains(t, stdout, "B200")
	})

	t.Run("NotFound", func(t *testing.T) {
		stdout, _, err := runCommand(t, "query", "--id", "Z999", "--format", "json")
		require.NoError(t, err)

		var products []models.Product
		require.NoError(t, json.Unmarshal([]byte(stdout), &products))
		assert.Empty(t, products)
	})

	t.Run("ListAllCSV", func(t *testing.T) {
		stdout, _, err := runCommand(t, "query", "--all", "--format", "csv")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(stdout), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "ProductID,ProductName,Category,QuantityInStock,Price", lines[0])
		assert.Equal(t, "A100,Widget,Hardware,42,9.99", lines[1])
	})

	t.Run("BothFlagsSearch", func(t *testing.T) {
		stdout, _, err := runCommand(t, "query", "--id", "B200", "--all")
		require.NoError(t, err)
		assert.Contains(t, stdout, "B200")
		assert.NotContains(t, stdout, "A100")
	})

	t.Run("EmptyID", func(t *testing.T) {
		stdout, stderr, err := runCommand(t, "query", "--id", "")
		require.NoError(t, err)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "No query ran")
	})

	t.Run("NoFlags", func(t *testing.T) {
		_, _, err := runCommand(t, "query")
		assert.Error(t, err)
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		_, _, err := runCommand(t, "query", "--all", "--format", "xml")
		assert.ErrorContains(t, err, "unsupported output format")
	})
}

func TestServeCommand_MissingConfig(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_DRIVER", config.DriverSQLServer)
	t.Setenv("DB_SERVER", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_USERNAME", "")
	t.Setenv("DB_PASSWORD", "")

	for _, args := range [][]string{{}, {"serve"}} {
		_, _, err := runCommand(t, args...)
		require.Error(t, err)
		assert.True(t, errors.Is(err, config.ErrMissingConfig))
		for _, key := range []string{"DB_SERVER", "DB_NAME", "DB_USERNAME", "DB_PASSWORD"} {
			assert.Contains(t, err.Error(), key)
		}
	}
}

func TestServeCommand_UnreachableDatabase(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("DB_NAME", filepath.Join(t.TempDir(), "no-such-dir", "catalog.db"))

	_, _, err := runCommand(t, "serve")
	assert.ErrorContains(t, err, "failed to connect to database")
}
