package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"fx-margin-guard/internal/bootstrap"
	"fx-margin-guard/internal/config"
	httpserver "fx-margin-guard/internal/infrastructure/http"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	expectedFakeRate   = 83.25
	readyTimeout       = 30 * time.Second
	readyPollInterval  = 250 * time.Millisecond
	requestContentType = "application/json"
)

type currentRateResponse struct {
	CurrencyPair       string  `json:"currencyPair"`
	Rate               float64 `json:"rate"`
	Timestamp          int64   `json:"timestamp"`
	DailyChange        float64 `json:"dailyChange"`
	DailyChangePercent float64 `json:"dailyChangePercent"`
}

type impactResponse struct {
	OrderRate         float64 `json:"orderRate"`
	CurrentRate       float64 `json:"currentRate"`
	ExpectedInrAmount float64 `json:"expectedInrAmount"`
	CurrentInrAmount  float64 `json:"currentInrAmount"`
	MarginLoss        float64 `json:"marginLoss"`
	PercentageChange  float64 `json:"percentageChange"`
	Suggestion        string  `json:"suggestion"`
}

func baseConfig() config.Config {
	return config.Config{
		LogLevel:       "error",
		Provider:       "fake",
		FakeRate:       expectedFakeRate,
		Pair:           "USD-INR",
		GuardBackend:   "none",
		QueryTimeout:   5 * time.Second,
		ImpactTimeout:  5 * time.Second,
		AcquireTimeout: 5 * time.Second,
		FetchInterval:  time.Minute,
	}
}

func TestE2E_MemoryProfile(t *testing.T) {
	cfg := baseConfig()
	cfg.Storage = "memory"
	runProfile(t, cfg)
}

func TestE2E_PGProfile(t *testing.T) {
	if os.Getenv("TESTCONTAINERS") == "" {
		t.Skip("set TESTCONTAINERS=1 to run containerized PG tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)
	container, err := postgres.RunContainer(ctx,
		postgres.WithDatabase("fxguard"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := baseConfig()
	cfg.Storage = "pg"
	cfg.DatabaseURL = dsn
	runProfile(t, cfg)
}

func runProfile(t *testing.T, cfg config.Config) {
	t.Helper()
	ctx := context.Background()
	app, cleanup, err := bootstrap.Build(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	ts := httptest.NewServer(httpserver.NewRouter(app.HTTPServer()))
	t.Cleanup(ts.Close)
	waitForReady(t, ts.URL)

	// Nothing acquired yet.
	resp, err := http.Get(ts.URL + "/rates/current")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, app.Scheduler.RunOnce(ctx))
	orderDate := time.Now().UTC()

	cur := getCurrentRate(t, ts.URL)
	require.Equal(t, "USD-INR", cur.CurrencyPair)
	assertApproxEqual(t, cur.Rate, expectedFakeRate, 1e-9)
	assertApproxEqual(t, cur.DailyChange, 0, 1e-9)

	impact := postImpact(t, ts.URL, map[string]any{
		"orderAmount":  1000,
		"orderDate":    orderDate.Format(time.RFC3339Nano),
		"fromCurrency": "USD",
		"toCurrency":   "INR",
		"orderId":      "order-1",
		"storeId":      "store-1",
	})
	assertApproxEqual(t, impact.ExpectedInrAmount, 83250, 1e-6)
	assertApproxEqual(t, impact.MarginLoss, 0, 1e-9)
	require.Equal(t, "Margin impact is within acceptable range", impact.Suggestion)

	resp, err = http.Get(ts.URL + "/stores/store-1/impacts")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Items []struct {
			OrderID string `json:"orderId"`
		} `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "order-1", page.Items[0].OrderID)
}

func waitForReady(t *testing.T, baseURL string) {
	t.Helper()
	deadline := time.Now().Add(readyTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/readyz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(readyPollInterval)
	}
	t.Fatalf("service not ready at %s", baseURL)
}

func getCurrentRate(t *testing.T, baseURL string) currentRateResponse {
	t.Helper()
	resp, err := http.Get(baseURL + "/rates/current?from=USD&to=INR")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out currentRateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func postImpact(t *testing.T, baseURL string, body map[string]any) impactResponse {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(baseURL+"/calculate-impact", requestContentType, bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out impactResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func assertApproxEqual(t *testing.T, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("got %v, want %v (tol %v)", got, want, tol)
	}
}
