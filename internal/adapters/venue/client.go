package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.smarkets.com/v3/"
	defaultTimeout = 10 * time.Second

	// Límite conservador: el bot coloca como mucho una orden por partido.
	defaultRatePerSec = 5
	defaultBurst      = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Config agrupa lo necesario para hablar con el venue.
type Config struct {
	BaseURL  string
	Username string
	Password string
	// Price es el precio límite enviado con cada orden.
	Price      decimal.Decimal
	Timeout    time.Duration
	RatePerSec float64
}

// Client es el HTTP client del venue con rate limiting, retries en la
// autenticación y token de sesión cacheado.
type Client struct {
	http     *http.Client
	base     string
	limiter  *rate.Limiter
	username string
	password string
	price    decimal.Decimal

	mu    sync.Mutex
	token string
}

// NewClient crea un Client. Si BaseURL está vacío usa el de producción.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.Price.IsZero() {
		cfg.Price = decimal.RequireFromString("1.2")
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		base:     cfg.BaseURL,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), defaultBurst),
		username: cfg.Username,
		password: cfg.Password,
		price:    cfg.Price,
	}
}

// response es una respuesta HTTP ya leída.
type response struct {
	status  int
	body    []byte
	cookies []*http.Cookie
}

// newJSONRequest construye un POST JSON contra base+path.
func (c *Client) newJSONRequest(ctx context.Context, path string, body any, token string) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do envía una única vez, con rate limiting.
func (c *Client) do(ctx context.Context, req *http.Request) (response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return response{}, fmt.Errorf("rate limiter: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}
	return response{status: resp.StatusCode, body: body, cookies: resp.Cookies()}, nil
}

// doWithRetry repite build+do con backoff exponencial ante errores de red,
// 429 y 5xx. Solo para peticiones idempotentes.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (response, error) {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return response{}, err
		}

		resp, err := c.do(ctx, req)
		if err != nil {
			if ctx.Err() != nil || attempt == maxRetries {
				return response{}, fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.status == http.StatusTooManyRequests || resp.status >= 500 {
			if attempt == maxRetries {
				return resp, fmt.Errorf("server error %d after %d retries", resp.status, maxRetries)
			}
			slog.Warn("venue: retrying request", "status", resp.status, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}
		return resp, nil
	}
	return response{}, fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
