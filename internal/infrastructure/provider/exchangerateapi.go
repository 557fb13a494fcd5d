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

const ExchangeRateAPIName = "exchangerate-api"

// ExchangeRateAPIProvider is the keyless fallback provider.
type ExchangeRateAPIProvider struct {
	BaseURL string
	Client  *httpx.Client
}

var _ application.RateProvider = (*ExchangeRateAPIProvider)(nil)

type exchangeRateAPIResp struct {
	Base           string             `json:"base"`
	Date           string             `json:"date"`
	TimeLastUpdate int64              `json:"time_last_updated"`
	Rates          map[string]float64 `json:"rates"`
}

func (p *ExchangeRateAPIProvider) Name() string { return ExchangeRateAPIName }

func (p *ExchangeRateAPIProvider) Quote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	q, err := p.quote(ctx, pair)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(ExchangeRateAPIName, outcome).Inc()
	return q, err
}

func (p *ExchangeRateAPIProvider) quote(ctx context.Context, pair domain.Pair) (domain.Quote, error) {
	if p.BaseURL == "" {
		return domain.Quote{}, errors.New("exchangerate-api: missing configuration")
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("exchangerate-api: invalid base url: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v4/latest/" + pair.Base()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("exchangerate-api: create request: %w", err)
	}
	var body exchangeRateAPIResp
	if err := client(p.Client).DoJSON(ctx, req, &body); err != nil {
		return domain.Quote{}, fmt.Errorf("exchangerate-api: %w", err)
	}
	base := body.Base
	if base == "" {
		base = pair.Base()
	}
	price, err := CrossRate(base, body.Rates, pair)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("exchangerate-api: %w", err)
	}
	quotedAt := time.Now().UTC()
	if body.TimeLastUpdate > 0 {
		quotedAt = time.Unix(body.TimeLastUpdate, 0).UTC()
	}
	return domain.Quote{Pair: pair, Rate: price, Source: ExchangeRateAPIName, QuotedAt: quotedAt}, nil
}
