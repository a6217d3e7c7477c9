package panel

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"nextflow/internal/metrics"
)

const (
	defaultBaseURL  = "https://api.painelcliente.com"
	defaultCacheTTL = 5 * time.Minute
)

var (
	// ErrNotConfigured is returned when no token or secret is available for a call.
	ErrNotConfigured = errors.New("panel credentials not configured")
	// ErrInvalidCredential indicates the panel rejected the token or secret.
	ErrInvalidCredential = errors.New("panel invalid credential")
	// ErrRejected wraps a result=false answer; the panel's message follows.
	ErrRejected = errors.New("panel rejected request")
	// ErrUnknownOperation is returned by Do for an action name that maps to no endpoint.
	ErrUnknownOperation = errors.New("unknown panel operation")
)

// JSONCache is the subset of the Redis cache the client needs.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Config holds panel client configuration.
type Config struct {
	BaseURL   string
	Token     string
	Secret    string
	Timeout   time.Duration
	CacheTTL  time.Duration
	RateLimit float64
}

// Credentials identify a reseller account on the panel. Empty fields fall
// back to the client's configured defaults.
type Credentials struct {
	BaseURL string
	Token   string
	Secret  string
}

// Client calls the Painel Cliente reseller API.
type Client struct {
	logger   *slog.Logger
	defaults Credentials
	http     *http.Client
	metrics  *metrics.Metrics
	cache    JSONCache
	cacheTTL time.Duration
	limiter  *rate.Limiter
}

// New creates a panel client. cache may be nil.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics, cache JSONCache) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = max(1, int(cfg.RateLimit))
	}
	return &Client{
		logger:   logger.With("component", "panel"),
		defaults: Credentials{BaseURL: base, Token: cfg.Token, Secret: cfg.Secret},
		http:     &http.Client{Timeout: timeout},
		metrics:  m,
		cache:    cache,
		cacheTTL: ttl,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

func (c *Client) resolve(creds Credentials) (Credentials, error) {
	if strings.TrimSpace(creds.BaseURL) == "" {
		creds.BaseURL = c.defaults.BaseURL
	}
	creds.BaseURL = strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	if creds.Token == "" && creds.Secret == "" {
		creds.Token = c.defaults.Token
		creds.Secret = c.defaults.Secret
	}
	if strings.TrimSpace(creds.Token) == "" || strings.TrimSpace(creds.Secret) == "" {
		return creds, ErrNotConfigured
	}
	return creds, nil
}

// CreateClientRequest creates a paid subscriber line.
type CreateClientRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	BouquetIDs  []int  `json:"idbouquet"`
	Months      int    `json:"month"`
	Connections int    `json:"connections"`
	Email       string `json:"email,omitempty"`
	WhatsApp    string `json:"whatsapp,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// UpdateClientRequest changes credentials, bouquets or notes of a line.
type UpdateClientRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password,omitempty"`
	BouquetIDs []int  `json:"idbouquet,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// TrialRequest creates a trial line.
type TrialRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	BouquetIDs []int  `json:"idbouquet"`
	Email      string `json:"email,omitempty"`
	WhatsApp   string `json:"whatsapp,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// Profile returns the reseller profile. Cached results are served unless refresh is set.
func (c *Client) Profile(ctx context.Context, creds Credentials, refresh bool) (json.RawMessage, error) {
	return c.cached(ctx, creds, "profile", refresh)
}

// Bouquets lists the channel packages available to the reseller.
func (c *Client) Bouquets(ctx context.Context, creds Credentials, refresh bool) (json.RawMessage, error) {
	return c.cached(ctx, creds, "bouquets", refresh)
}

func (c *Client) CreateClient(ctx context.Context, creds Credentials, req CreateClientRequest) (json.RawMessage, error) {
	return c.call(ctx, creds, "/create_client", req)
}

func (c *Client) UpdateClient(ctx context.Context, creds Credentials, req UpdateClientRequest) (json.RawMessage, error) {
	return c.call(ctx, creds, "/update_client", req)
}

func (c *Client) RenewClient(ctx context.Context, creds Credentials, username string, months int) (json.RawMessage, error) {
	return c.call(ctx, creds, "/renew_client", map[string]any{"username": username, "month": months})
}

func (c *Client) AddScreen(ctx context.Context, creds Credentials, username string, connections int) (json.RawMessage, error) {
	return c.call(ctx, creds, "/screen_client/add", map[string]any{"username": username, "connections": connections})
}

// RemoveScreen drops connections from a line. The panel expects the count as a string here.
func (c *Client) RemoveScreen(ctx context.Context, creds Credentials, username string, connections int) (json.RawMessage, error) {
	return c.call(ctx, creds, "/screen_client/remove", map[string]any{"username": username, "connections": strconv.Itoa(connections)})
}

// BlockClient blocks (true) or unblocks (false) a line.
func (c *Client) BlockClient(ctx context.Context, creds Credentials, username string, blocked bool) (json.RawMessage, error) {
	return c.call(ctx, creds, "/block_client", map[string]any{"username": username, "status": blocked})
}

func (c *Client) GetClient(ctx context.Context, creds Credentials, username string) (json.RawMessage, error) {
	return c.call(ctx, creds, "/get_client", map[string]any{"username": username})
}

func (c *Client) DeleteClient(ctx context.Context, creds Credentials, username string) (json.RawMessage, error) {
	return c.call(ctx, creds, "/delete_client", map[string]any{"username": username})
}

func (c *Client) CreateTrial(ctx context.Context, creds Credentials, req TrialRequest) (json.RawMessage, error) {
	return c.call(ctx, creds, "/trial_create", req)
}

// ListClients pages through every line owned by the reseller. Zero values omit paging.
func (c *Client) ListClients(ctx context.Context, creds Credentials, page, limit int) (json.RawMessage, error) {
	body := map[string]any{}
	if page > 0 {
		body["page"] = page
	}
	if limit > 0 {
		body["limit"] = limit
	}
	return c.call(ctx, creds, "/get_clients_all", body)
}

// operations maps action names accepted by Do onto panel endpoints.
var operations = map[string]string{
	"profile":         "/profile",
	"bouquets":        "/bouquets",
	"create_client":   "/create_client",
	"update_client":   "/update_client",
	"renew_client":    "/renew_client",
	"screen_add":      "/screen_client/add",
	"screen_remove":   "/screen_client/remove",
	"block_client":    "/block_client",
	"get_client":      "/get_client",
	"delete_client":   "/delete_client",
	"trial_create":    "/trial_create",
	"get_clients_all": "/get_clients_all",
}

// Operations lists the action names accepted by Do, sorted.
func Operations() []string {
	out := make([]string, 0, len(operations))
	for name := range operations {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Do forwards a raw payload to the named operation. Profile and bouquets go
// through the cache like their typed counterparts.
func (c *Client) Do(ctx context.Context, creds Credentials, action string, payload map[string]any) (json.RawMessage, error) {
	endpoint, ok := operations[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, action)
	}
	switch action {
	case "profile", "bouquets":
		refresh, _ := payload["refresh"].(bool)
		return c.cached(ctx, creds, action, refresh)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return c.call(ctx, creds, endpoint, payload)
}

func (c *Client) cached(ctx context.Context, creds Credentials, op string, refresh bool) (json.RawMessage, error) {
	resolved, err := c.resolve(creds)
	if err != nil {
		return nil, err
	}
	key := cacheKey(op, resolved)
	if c.cache != nil && !refresh {
		var hit json.RawMessage
		ok, err := c.cache.GetJSON(ctx, key, &hit)
		if err != nil {
			c.logger.Warn("read panel cache failed", "op", op, "error", err)
		} else if ok {
			return hit, nil
		}
	}

	data, err := c.post(ctx, resolved, "/"+op, map[string]any{})
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, data, c.cacheTTL); err != nil {
			c.logger.Warn("write panel cache failed", "op", op, "error", err)
		}
	}
	return data, nil
}

// readOnly endpoints leave the reseller's credit balance untouched.
var readOnly = map[string]bool{
	"/get_client":      true,
	"/get_clients_all": true,
}

func (c *Client) call(ctx context.Context, creds Credentials, endpoint string, payload any) (json.RawMessage, error) {
	resolved, err := c.resolve(creds)
	if err != nil {
		return nil, err
	}
	data, err := c.post(ctx, resolved, endpoint, payload)
	if err != nil {
		return nil, err
	}
	if c.cache != nil && !readOnly[endpoint] {
		if err := c.cache.Delete(ctx, cacheKey("profile", resolved)); err != nil {
			c.logger.Warn("invalidate panel profile failed", "endpoint", endpoint, "error", err)
		}
	}
	return data, nil
}

// post merges the secret into payload, posts it to {base}{endpoint}/{token}
// and unwraps the envelope.
func (c *Client) post(ctx context.Context, creds Credentials, endpoint string, payload any) (json.RawMessage, error) {
	body, err := withSecret(payload, creds.Secret)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("panel rate limit: %w", err)
	}

	var env envelope
	if err := c.do(ctx, creds.BaseURL+endpoint+"/"+creds.Token, endpoint, body, &env); err != nil {
		return nil, err
	}
	if !env.Result {
		message := env.Message
		if message == "" {
			message = "request failed"
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrRejected, endpoint, message)
	}
	return env.Data, nil
}

func (c *Client) do(ctx context.Context, reqURL, endpoint string, body []byte, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nextflow/panel-client")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		if c.metrics != nil {
			c.metrics.PanelRequests.WithLabelValues(endpoint, "error").Inc()
			c.metrics.Errors.WithLabelValues("panel").Inc()
		}
		return fmt.Errorf("panel request: %w", err)
	}
	defer res.Body.Close()

	statusLabel := strconv.Itoa(res.StatusCode)
	if c.metrics != nil {
		c.metrics.PanelRequests.WithLabelValues(endpoint, statusLabel).Inc()
		c.metrics.PanelLatency.WithLabelValues(endpoint, statusLabel).Observe(time.Since(start).Seconds())
	}

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode >= 400 {
		return classifyHTTPError(res.StatusCode, bodyBytes)
	}
	if err := json.Unmarshal(bodyBytes, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classifyHTTPError(status int, body []byte) error {
	snippet := strings.TrimSpace(string(body))
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		snippet = env.Message
	}
	lower := strings.ToLower(snippet)
	if status == http.StatusUnauthorized || status == http.StatusForbidden ||
		strings.Contains(lower, "token inválido") ||
		strings.Contains(lower, "token invalido") ||
		strings.Contains(lower, "secret inválido") ||
		strings.Contains(lower, "secret invalido") {
		return fmt.Errorf("%w: %s", ErrInvalidCredential, snippet)
	}
	return fmt.Errorf("panel error: status=%d body=%s", status, snippet)
}

func withSecret(payload any, secret string) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if string(raw) != "null" {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("payload must be a json object: %w", err)
		}
	}
	s, _ := json.Marshal(secret)
	fields["secret"] = s
	return json.Marshal(fields)
}

// cacheKey scopes cached panel answers to one reseller without storing the token itself.
func cacheKey(op string, creds Credentials) string {
	sum := sha256.Sum256([]byte(creds.BaseURL + "|" + creds.Token))
	return "panel:" + op + ":" + hex.EncodeToString(sum[:8])
}
