package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"
	"fx-margin-guard/internal/infrastructure/httpx"
	"fx-margin-guard/internal/infrastructure/metrics"
)

const (
	FixerName = "fixer.io"

	fixerLatestPath = "/latest"
	// fixerUsageLimitReached is returned once the monthly request quota is spent.
	fixerUsageLimitReached = 104

	// ModeCross asks for both legs against the account's base currency (EUR on
	// the free tier) and divides them.
	ModeCross = "cross"
	// ModeDirect requests the pair's base currency directly (paid tiers).
	ModeDirect = "direct"
)

type FixerProvider struct {
	BaseURL string
	APIKey  string
	Mode    string
	Client  *httpx.Client
}

var _ application.RateProvider = (*FixerProvider)(nil)

type fixerLatestResp struct {
	Success   bool               `json:"success"`
	Timestamp int64              `json:"timestamp"`
	Base      string             `json:"base"`
	Date      string             `json:"date"`
	Rates     map[string]float64 `json:"rates"`
	Error     *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error,omitempty"`
}

func (p *FixerProvider) Name() string { return FixerName }

func (p *FixerProvider) Quote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	q, err := p.quote(ctx, pair)
	switch {
	case err == nil:
		metrics.ProviderRequestsTotal.WithLabelValues(FixerName, "ok").Inc()
	case errors.Is(err, domain.ErrQuotaExceeded):
		metrics.ProviderRequestsTotal.WithLabelValues(FixerName, "quota_exceeded").Inc()
	default:
		metrics.ProviderRequestsTotal.WithLabelValues(FixerName, "error").Inc()
	}
	return q, err
}

func (p *FixerProvider) quote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return domain.Quote{}, errors.New("fixer: missing configuration")
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("fixer: invalid base url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + fixerLatestPath
	q := u.Query()
	q.Set("access_key", p.APIKey)
	if p.Mode == ModeDirect {
		q.Set("base", pair.Base())
		q.Set("symbols", pair.Quote())
	} else {
		q.Set("symbols", pair.Quote()+","+pair.Base())
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("fixer: create request: %w", err)
	}
	var body fixerLatestResp
	if err := client(p.Client).DoJSON(ctx, req, &body); err != nil {
		return domain.Quote{}, fmt.Errorf("fixer: %w", err)
	}
	if !body.Success {
		if body.Error != nil {
			if body.Error.Code == fixerUsageLimitReached {
				return domain.Quote{}, fmt.Errorf("fixer: %w: %s", domain.ErrQuotaExceeded, body.Error.Info)
			}
			return domain.Quote{}, fmt.Errorf("fixer: %d %s %s", body.Error.Code, body.Error.Type, body.Error.Info)
		}
		return domain.Quote{}, errors.New("fixer: unsuccessful response")
	}

	price, err := CrossRate(body.Base, body.Rates, pair)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("fixer: %w", err)
	}
	quotedAt := time.Now().UTC()
	if body.Timestamp > 0 {
		quotedAt = time.Unix(body.Timestamp, 0).UTC()
	}
	return domain.Quote{Pair: pair, Rate: price, Source: FixerName, QuotedAt: quotedAt}, nil
}

// CrossRate derives BASE/QUOTE from a table quoted against respBase:
// (respBase/QUOTE) / (respBase/BASE).
func CrossRate(respBase string, rates map[string]float64, pair domain.Pair) (float64, error) {
	leg := func(c string) (float64, error) {
		if c == respBase {
			return 1.0, nil
		}
		v, ok := rates[c]
		if !ok || v <= 0 {
			return 0, fmt.Errorf("%w: %s/%s", domain.ErrMissingQuote, respBase, c)
		}
		return v, nil
	}
	toBase, err := leg(pair.Base())
	if err != nil {
		return 0, err
	}
	toQuote, err := leg(pair.Quote())
	if err != nil {
		return 0, err
	}
	return toQuote / toBase, nil
}

func client(c *httpx.Client) *httpx.Client {
	if c == nil {
		return &httpx.Client{}
	}
	return c
}
