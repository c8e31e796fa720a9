package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shaiso/sweep/internal/domain"
	"github.com/shaiso/sweep/internal/repo"
)

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для API работающего `sweep run --listen`.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Progress возвращает прогресс текущего запуска.
func (c *Client) Progress(ctx context.Context) (*domain.Progress, error) {
	var progress domain.Progress
	err := c.get(ctx, "/api/v1/progress", &progress)
	return &progress, err
}

// Project возвращает прогресс одного проекта.
func (c *Client) Project(ctx context.Context, name string) (*domain.ProjectProgress, error) {
	var project domain.ProjectProgress
	err := c.get(ctx, "/api/v1/projects/"+url.PathEscape(name), &project)
	return &project, err
}

// ListRuns возвращает последние запуски из журнала.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]repo.RunRecord, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var runs []repo.RunRecord
	err := c.list(ctx, "/api/v1/runs", params, &runs)
	return runs, err
}

// ListRunEvents возвращает события запуска из журнала.
func (c *Client) ListRunEvents(ctx context.Context, runID string) ([]domain.Event, error) {
	var events []domain.Event
	err := c.list(ctx, "/api/v1/runs/"+url.PathEscape(runID)+"/events", nil, &events)
	return events, err
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, result any) error {
	resp, err := c.do(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return json.Unmarshal(dr.Data, result)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return json.Unmarshal(lr.Data, result)
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
