package client

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

	"calagent/internal/models"
)

// RESTClient talks to the calendar service's HTTP API. It satisfies the API
// interface consumed by Session and also exposes the create/delete/command
// operations a UI shell needs.
type RESTClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewRESTClient(httpClient *http.Client, baseURL string) *RESTClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RESTClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}
}

// EventsBetween fetches the authoritative event list for [start, end).
func (c *RESTClient) EventsBetween(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	path := "/events/range?" + q.Encode()
	var out []models.Event
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sync asks the server to run a sync cycle and returns its outcome.
func (c *RESTClient) Sync(ctx context.Context) (models.SyncStatus, error) {
	var out models.SyncStatus
	if err := c.do(ctx, http.MethodPost, "/sync", nil, &out); err != nil {
		return models.SyncStatus{}, err
	}
	return out, nil
}

type mutationResponse struct {
	Success bool          `json:"success"`
	Event   *models.Event `json:"event"`
	Error   string        `json:"error"`
}

// CreateEvent creates an event on the server.
func (c *RESTClient) CreateEvent(ctx context.Context, req models.EventCreateRequest) (*models.Event, error) {
	var out mutationResponse
	if err := c.do(ctx, http.MethodPost, "/events", req, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("create event failed: %s", out.Error)
	}
	return out.Event, nil
}

// DeleteEvent removes an event by ID.
func (c *RESTClient) DeleteEvent(ctx context.Context, id string) error {
	var out mutationResponse
	if err := c.do(ctx, http.MethodDelete, "/events/"+id, nil, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("delete event failed: %s", out.Error)
	}
	return nil
}

// CommandResult is the server's answer to a free-text command.
type CommandResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Events  []models.Event `json:"events"`
	Error   string         `json:"error"`
}

// Command submits one free-text command line.
func (c *RESTClient) Command(ctx context.Context, line string) (*CommandResult, error) {
	body := map[string]string{"command": line}
	var out CommandResult
	if err := c.do(ctx, http.MethodPost, "/command", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTClient) do(ctx context.Context, method, path string, body any, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	if strings.TrimSpace(eb.Error) != "" {
		return fmt.Errorf("calagent %d: %s", resp.StatusCode, eb.Error)
	}
	return fmt.Errorf("calagent status %d", resp.StatusCode)
}
