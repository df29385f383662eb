// Package provider fetches currencies and conversion rates over HTTP and
// keeps a last-known-good snapshot to fall back on.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"walletflow/internal/core"
	"walletflow/internal/log"
)

// HTTPSource reads a JSON rates API:
//
//	GET {base}/currencies              -> [{"code":"USD","symbol":"$"}, ...]
//	GET {base}/rates?base=USD&symbols= -> {"base":"USD","rates":{"EUR":0.9}}
type HTTPSource struct {
	baseURL    string
	client     *http.Client
	maxRetries uint64
	backoff    func() backoff.BackOff
	logger     *log.Logger
}

type Option func(*HTTPSource)

func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPSource) { s.client = c }
}

// WithBackOff overrides the retry schedule, mainly so tests do not sleep.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(s *HTTPSource) { s.backoff = fn }
}

func NewHTTPSource(baseURL string, maxRetries int, logger *log.Logger, opts ...Option) *HTTPSource {
	if maxRetries < 0 {
		maxRetries = 0
	}
	s := &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: uint64(maxRetries),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		logger: logger.WithComponent(log.ComponentRates),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type currencyDTO struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

type ratesDTO struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FetchCurrencies implements ports.RateSource
func (s *HTTPSource) FetchCurrencies(ctx context.Context) ([]core.Currency, error) {
	var dto []currencyDTO
	if err := s.getJSON(ctx, "/currencies", nil, &dto); err != nil {
		return nil, fmt.Errorf("fetch currencies: %w", err)
	}
	out := make([]core.Currency, 0, len(dto))
	for _, c := range dto {
		cur := core.Currency{Code: strings.ToUpper(c.Code), Symbol: c.Symbol}
		if err := cur.Validate(); err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid currency", log.FieldCurrency, c.Code, log.FieldError, err)
			continue
		}
		out = append(out, cur)
	}
	return out, nil
}

// FetchRates implements ports.RateSource. The result is a star around base.
func (s *HTTPSource) FetchRates(ctx context.Context, base string, targets []string) ([]core.ConversionRate, error) {
	q := url.Values{}
	q.Set("base", base)
	if len(targets) > 0 {
		q.Set("symbols", strings.Join(targets, ","))
	}
	var dto ratesDTO
	if err := s.getJSON(ctx, "/rates", q, &dto); err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	if dto.Base != "" && !strings.EqualFold(dto.Base, base) {
		return nil, fmt.Errorf("fetch rates: asked for base %s, got %s", base, dto.Base)
	}

	codes := make([]string, 0, len(dto.Rates))
	for code := range dto.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]core.ConversionRate, 0, len(codes))
	for _, code := range codes {
		r := core.ConversionRate{Source: base, Destination: strings.ToUpper(code), Rate: dto.Rates[code]}
		if r.Destination == base {
			continue
		}
		if err := r.Validate(); err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid rate", log.FieldCurrency, code, log.FieldError, err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// statusError marks HTTP failures; 4xx responses are not retried.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, q url.Values, into any) error {
	endpoint := s.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			serr := &statusError{code: resp.StatusCode}
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(serr)
			}
			return serr
		}
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			return backoff.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.logger.WarnContext(ctx, "Rates request failed, retrying",
			log.FieldAttempt, attempt,
			log.FieldError, err,
			"retry_in", wait)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.backoff(), s.maxRetries), ctx)
	err := backoff.RetryNotify(op, b, notify)
	var serr *statusError
	if errors.As(err, &serr) {
		return fmt.Errorf("%s: %w", path, serr)
	}
	return err
}
