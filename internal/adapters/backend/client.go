// Package backend — типизированный клиент HTTP API планировщика.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"x-command-dashboard/internal/domain"
	"x-command-dashboard/internal/infra/metrics"
)

const headerAdminToken = "X-Admin-Token"

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     domain.TokenSource
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// apiError — тело ошибки FastAPI-бэкенда.
type apiError struct {
	Detail string `json:"detail"`
}

// New создаёт клиент. Каждый запрос несёт текущий админ-токен из tokens;
// ответ 401 сбрасывает сессию через tokens.Invalidate.
func New(baseURL string, tokens domain.TokenSource, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

var _ domain.BackendAPI = (*Client)(nil)

// ListPosts возвращает коллекцию постов; непустой filter попадает в ?status=.
func (c *Client) ListPosts(ctx context.Context, filter string) ([]domain.Post, error) {
	endpoint := "/api/posts/"
	if filter != "" {
		endpoint += "?status=" + url.QueryEscape(filter)
	}
	var posts []domain.Post
	if err := c.get(ctx, "list_posts", endpoint, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) LatestPost(ctx context.Context) (domain.Post, error) {
	var post domain.Post
	if err := c.get(ctx, "latest_post", "/api/posts/latest", &post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (c *Client) PostStats(ctx context.Context) (domain.GlobalStats, error) {
	var stats domain.GlobalStats
	if err := c.get(ctx, "post_stats", "/api/posts/stats", &stats); err != nil {
		return domain.GlobalStats{}, err
	}
	return stats, nil
}

func (c *Client) CreatePost(ctx context.Context, post domain.Post) (domain.Post, error) {
	var created domain.Post
	if err := c.send(ctx, "create_post", http.MethodPost, "/api/posts/", post, &created); err != nil {
		return domain.Post{}, err
	}
	return created, nil
}

// UpdatePost отправляет частичный патч: присутствующие ключи перезаписываются,
// значение nil явно очищает поле.
func (c *Client) UpdatePost(ctx context.Context, id int64, patch map[string]any) (domain.Post, error) {
	var updated domain.Post
	endpoint := fmt.Sprintf("/api/posts/%d", id)
	if err := c.send(ctx, "update_post", http.MethodPut, endpoint, patch, &updated); err != nil {
		return domain.Post{}, err
	}
	return updated, nil
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("/api/posts/%d", id)
	return c.send(ctx, "delete_post", http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.LoginResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var result domain.LoginResult
	if err := c.send(ctx, "login", http.MethodPost, "/api/auth/login", payload, &result); err != nil {
		return domain.LoginResult{}, err
	}
	return result, nil
}

// VerifyToken проверяет кандидата до того, как он станет токеном сессии,
// поэтому заголовок ставится вручную, мимо TokenSource.
func (c *Client) VerifyToken(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/auth/verify-token", nil)
	if err != nil {
		return err
	}
	req.Header.Set(headerAdminToken, token)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveBackendRequest("verify_token", start, err)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return domain.ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) AuthStatus(ctx context.Context) ([]domain.Account, error) {
	var payload struct {
		Accounts []domain.Account `json:"accounts"`
	}
	if err := c.get(ctx, "auth_status", "/api/auth/status", &payload); err != nil {
		return nil, err
	}
	return payload.Accounts, nil
}

func (c *Client) SyncAccount(ctx context.Context, username string) (domain.SyncResult, error) {
	var result domain.SyncResult
	endpoint := "/api/auth/sync/" + url.PathEscape(username)
	if err := c.send(ctx, "sync_account", http.MethodPost, endpoint, nil, &result); err != nil {
		return domain.SyncResult{}, err
	}
	return result, nil
}

func (c *Client) GrowthData(ctx context.Context) ([]domain.GrowthData, error) {
	var data []domain.GrowthData
	if err := c.get(ctx, "growth", "/api/analytics/growth", &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) AccountGrowth(ctx context.Context) ([]domain.AccountGrowth, error) {
	var data []domain.AccountGrowth
	if err := c.get(ctx, "account_growth", "/api/analytics/account-growth", &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) BestTimes(ctx context.Context) (domain.BestTimes, error) {
	var data domain.BestTimes
	if err := c.get(ctx, "best_times", "/api/analytics/best-times", &data); err != nil {
		return domain.BestTimes{}, err
	}
	return data, nil
}

func (c *Client) Performance(ctx context.Context) (domain.PerformanceData, error) {
	var data domain.PerformanceData
	if err := c.get(ctx, "performance", "/api/analytics/performance", &data); err != nil {
		return domain.PerformanceData{}, err
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, operation, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, operation, out)
}

func (c *Client) send(ctx context.Context, operation, method, endpoint string, body, out any) error {
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		buf = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, endpoint, buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, operation, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	resolved := *c.baseURL
	var query string
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint, query = endpoint[:i], endpoint[i+1:]
	}
	resolved.Path = strings.TrimSuffix(c.baseURL.Path, "/") + endpoint
	resolved.RawQuery = query
	req, err := http.NewRequestWithContext(ctx, method, resolved.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set(headerAdminToken, token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveBackendRequest(operation, start, err)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// сбрасываем ровно тот токен, с которым ходил запрос
		c.tokens.Invalidate(req.Header.Get(headerAdminToken))
		return domain.ErrUnauthorized
	}
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	var apiErr apiError
	data, readErr := io.ReadAll(resp.Body)
	if readErr == nil && len(data) > 0 {
		_ = json.Unmarshal(data, &apiErr)
	}
	if apiErr.Detail == "" {
		apiErr.Detail = strings.TrimSpace(string(data))
	}
	return fmt.Errorf("backend error: status=%d detail=%s", resp.StatusCode, apiErr.Detail)
}
