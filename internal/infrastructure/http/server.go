package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fx-margin-guard/internal/application"
	"fx-margin-guard/internal/domain"
	"fx-margin-guard/internal/infrastructure/logx"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"
)

const (
	defaultFrom = "USD"
	defaultTo   = "INR"

	defaultListLimit = 50
	maxListLimit     = 500
)

type Server struct {
	rates   *application.RateQueryService
	impacts *application.ImpactService
	ping    func(ctx context.Context) error

	QueryTimeout  time.Duration
	ImpactTimeout time.Duration
}

func NewServer(rates *application.RateQueryService, impacts *application.ImpactService) *Server {
	return &Server{
		rates:         rates,
		impacts:       impacts,
		QueryTimeout:  10 * time.Second,
		ImpactTimeout: 15 * time.Second,
	}
}

// SetReadyCheck installs the /readyz probe, normally a store ping.
func (s *Server) SetReadyCheck(fn func(ctx context.Context) error) { s.ping = fn }

type currentRateResponse struct {
	CurrencyPair       string  `json:"currencyPair"`
	Rate               float64 `json:"rate"`
	Timestamp          int64   `json:"timestamp"`
	DailyChange        float64 `json:"dailyChange"`
	DailyChangePercent float64 `json:"dailyChangePercent"`
}

func (s *Server) GetCurrentRate(w http.ResponseWriter, r *http.Request) {
	from, to := defaultFrom, defaultTo
	q := r.URL.Query()
	if err := optionalQuery(q, "from", &from); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameter from")
		return
	}
	if err := optionalQuery(q, "to", &to); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameter to")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.QueryTimeout)
	defer cancel()
	cur, err := s.rates.CurrentRate(ctx, from, to)
	if err != nil {
		s.fail(w, r, err, "No rates found")
		return
	}
	writeJSON(w, http.StatusOK, currentRateResponse{
		CurrencyPair:       string(cur.Pair),
		Rate:               cur.Rate,
		Timestamp:          domain.ToMillis(cur.Timestamp),
		DailyChange:        cur.DailyChange,
		DailyChangePercent: cur.DailyChangePercent,
	})
}

type impactRequest struct {
	OrderAmount  float64 `json:"orderAmount"`
	OrderDate    string  `json:"orderDate"`
	FromCurrency string  `json:"fromCurrency"`
	ToCurrency   string  `json:"toCurrency"`
	OrderID      string  `json:"orderId,omitempty"`
	StoreID      string  `json:"storeId,omitempty"`
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

func (s *Server) CalculateImpact(w http.ResponseWriter, r *http.Request) {
	var body impactRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.ImpactTimeout)
	defer cancel()
	res, err := s.impacts.Calculate(ctx, application.ImpactRequest{
		OrderAmount:  body.OrderAmount,
		OrderDate:    body.OrderDate,
		FromCurrency: body.FromCurrency,
		ToCurrency:   body.ToCurrency,
		OrderID:      body.OrderID,
		StoreID:      body.StoreID,
	})
	if err != nil {
		s.fail(w, r, err, "Exchange rates not found")
		return
	}
	writeJSON(w, http.StatusOK, impactResponse{
		OrderRate:         res.OrderRate,
		CurrentRate:       res.CurrentRate,
		ExpectedInrAmount: res.ExpectedAmount,
		CurrentInrAmount:  res.CurrentAmount,
		MarginLoss:        res.MarginLoss,
		PercentageChange:  res.PercentageChange,
		Suggestion:        res.Suggestion,
	})
}

type orderImpactDTO struct {
	OrderID          string  `json:"orderId"`
	StoreID          string  `json:"storeId"`
	OrderDate        string  `json:"orderDate"`
	OrderAmount      float64 `json:"orderAmount"`
	OrderRate        float64 `json:"orderRate"`
	CurrentRate      float64 `json:"currentRate"`
	MarginLoss       float64 `json:"marginLoss"`
	PercentageChange float64 `json:"percentageChange"`
	Timestamp        int64   `json:"timestamp"`
}

type listImpactsResponse struct {
	Items []orderImpactDTO `json:"items"`
}

func (s *Server) ListStoreImpacts(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeId")
	q := r.URL.Query()
	var from, to string
	limit := defaultListLimit
	if err := optionalQuery(q, "from", &from); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameter from")
		return
	}
	if err := optionalQuery(q, "to", &to); err != nil {
		writeError(w, http.StatusBadRequest, "invalid parameter to")
		return
	}
	if err := optionalQuery(q, "limit", &limit); err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid parameter limit")
		return
	}
	limit = min(limit, maxListLimit)

	var rng application.DateRange
	for _, b := range []struct {
		raw string
		dst *time.Time
	}{{from, &rng.From}, {to, &rng.To}} {
		if b.raw == "" {
			continue
		}
		t, err := domain.ParseOrderDate(b.raw)
		if err != nil {
			s.fail(w, r, err, "")
			return
		}
		*b.dst = t
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.QueryTimeout)
	defer cancel()
	recs, err := s.impacts.ListStoreImpacts(ctx, storeID, rng, limit)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	out := listImpactsResponse{Items: make([]orderImpactDTO, 0, len(recs))}
	for _, rec := range recs {
		out.Items = append(out.Items, orderImpactDTO{
			OrderID:          rec.OrderID,
			StoreID:          rec.StoreID,
			OrderDate:        rec.OrderDate.Format(time.RFC3339Nano),
			OrderAmount:      rec.OrderAmount,
			OrderRate:        rec.OrderRate,
			CurrentRate:      rec.CurrentRate,
			MarginLoss:       rec.MarginLoss,
			PercentageChange: rec.PercentageChange,
			Timestamp:        domain.ToMillis(rec.Timestamp),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// optionalQuery binds a form-style query parameter into dst, leaving dst
// untouched when the parameter is absent.
func optionalQuery[T any](q url.Values, name string, dst *T) error {
	var p *T
	if err := runtime.BindQueryParameter("form", true, false, name, q, &p); err != nil {
		return err
	}
	if p != nil {
		*dst = *p
	}
	return nil
}

// fail maps err to a status. noDataMsg replaces the detail on 404s.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, noDataMsg string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, publicMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrNoData):
		if noDataMsg == "" {
			noDataMsg = publicMessage(err, domain.ErrNoData)
		}
		writeError(w, http.StatusNotFound, noDataMsg)
	default:
		logx.WithFields(r.Context()).Error("request_failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// publicMessage drops the sentinel prefix from a wrapped error message.
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		return msg[i+len(sentinel.Error())+2:]
	}
	return msg
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
