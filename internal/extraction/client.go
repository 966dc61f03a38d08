package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Job states reported by the extraction service.
const (
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateError      = "error"
)

// Job is an immutable snapshot of a remote extraction job, produced by each
// status poll. It lives only for the duration of the orchestration call.
type Job struct {
	ID          string
	State       string
	Progress    int
	Message     string
	ErrorDetail string
	Data        *Payload
}

// Terminal reports whether the job has reached a terminal state.
func (j Job) Terminal() bool { return j.State == StateCompleted || j.State == StateError }

// Client is the interface for the remote extraction service.
type Client interface {
	Submit(ctx context.Context, listingURL string) (string, error)
	Status(ctx context.Context, id string) (Job, error)
	Complete(ctx context.Context, id string) (*Payload, error)
}

// HTTPClient implements Client against the extraction service's HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new extraction service client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type submitRequest struct {
	URL                 string `json:"url"`
	AutoDetectAI        bool   `json:"auto_detect_ai"`
	Method              string `json:"method"`
	UseAIClassification bool   `json:"use_ai_classification"`
}

type submitResponse struct {
	ExtractionID string `json:"extraction_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

type statusResponse struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Progress int      `json:"progress"`
	Message  string   `json:"message"`
	Error    string   `json:"error,omitempty"`
	Data     *Payload `json:"data,omitempty"`
}

// extractionMethod is the fixed strategy: deterministic HTML extraction, no
// AI classification.
const extractionMethod = "intelligent_html_extraction"

// Submit starts an extraction job for the listing URL and returns the opaque
// job identifier issued by the service.
func (c *HTTPClient) Submit(ctx context.Context, listingURL string) (string, error) {
	body, err := json.Marshal(submitRequest{
		URL:    listingURL,
		Method: extractionMethod,
	})
	if err != nil {
		return "", fmt.Errorf("encoding submit request: %w", err)
	}

	u := fmt.Sprintf("%s/api/extract", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The response body is kept for diagnostics; these rejections are
		// usually actionable ("unsupported listing", quota messages).
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstreamRejected, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUpstreamRejected, err)
	}
	if out.ExtractionID == "" {
		return "", fmt.Errorf("%w: response missing extraction_id", ErrUpstreamRejected)
	}
	return out.ExtractionID, nil
}

// Status reads one job snapshot. A non-success HTTP status, an undecodable
// body, or an error field on a non-terminal snapshot all map to ErrPoll;
// a snapshot in the "error" state is returned intact so the orchestrator can
// run its salvage path.
func (c *HTTPClient) Status(ctx context.Context, id string) (Job, error) {
	u := fmt.Sprintf("%s/api/status/%s", c.baseURL, url.PathEscape(id))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Job{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrPoll, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Job{}, fmt.Errorf("%w: status %d", ErrPoll, resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Job{}, fmt.Errorf("%w: decoding status response: %v", ErrPoll, err)
	}

	job := Job{
		ID:          out.ID,
		State:       out.Status,
		Progress:    out.Progress,
		Message:     out.Message,
		ErrorDetail: out.Error,
		Data:        out.Data,
	}
	if job.ID == "" {
		job.ID = id
	}
	if out.Error != "" && out.Status != StateError {
		return Job{}, fmt.Errorf("%w: %s", ErrPoll, out.Error)
	}
	return job, nil
}

// Complete is the salvage read: it fetches whatever partial data exists for
// a job that ended in error. Used only after a terminal error snapshot.
func (c *HTTPClient) Complete(ctx context.Context, id string) (*Payload, error) {
	u := fmt.Sprintf("%s/api/extraction/complete/%s", c.baseURL, url.PathEscape(id))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("salvage read: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("salvage read: status %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("salvage read: decoding response: %w", err)
	}
	return out.Data, nil
}
