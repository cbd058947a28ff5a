package planapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"epos-backend/internal/infrastructure/metrics"

	"github.com/pkg/errors"
)

const DefaultBaseURL = "http://localhost:5002"

// GenerateResponse is the body of POST /api/generate-plan. A queued request
// carries TaskID and Status; a synchronous one carries Plan.
type GenerateResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	TaskID           string `json:"task_id"`
	Status           string `json:"status"`
	OrganizationName string `json:"organization_name"`
	Plan             string `json:"plan"`
}

// Task is one queued plan-generation job.
type Task struct {
	TaskID           string          `json:"task_id"`
	UserEmail        string          `json:"user_email"`
	OrganizationName string          `json:"organization_name"`
	PlanInputs       json.RawMessage `json:"plan_inputs,omitempty"`
	Status           string          `json:"status"`
	CreatedAt        string          `json:"created_at"`
	StartedAt        *string         `json:"started_at"`
	CompletedAt      *string         `json:"completed_at"`
	ErrorMessage     *string         `json:"error_message"`
	PlanContent      *string         `json:"plan_content"`
}

type PDFRequest struct {
	Content   string `json:"content"`
	Password  string `json:"password"`
	PlanTitle string `json:"planTitle"`
}

type EmailRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	PlanID    string `json:"planId,omitempty"`
	PlanTitle string `json:"planTitle"`
}

type EmailResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Model     string `json:"model"`
}

// APIError is a non-2xx answer; Message is the API's "error" field when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// Client talks to the external plan-generation API.
type Client struct {
	BaseURL string
	Client  *http.Client
}

func (c *Client) Generate(ctx context.Context, form interface{}) (*GenerateResponse, error) {
	var out GenerateResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/generate-plan", form, &out)
	metrics.PlanRequest("generate", err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TaskStatus(ctx context.Context, taskID string) (*Task, error) {
	var out struct {
		Success bool `json:"success"`
		Task    Task `json:"task"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/task-status/"+url.PathEscape(taskID), nil, &out)
	metrics.PlanRequest("task_status", err)
	if err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// DownloadPDF returns the password-protected PDF bytes.
func (c *Client) DownloadPDF(ctx context.Context, in PDFRequest) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/download-pdf", in)
	if err == nil {
		defer resp.Body.Close()
		var pdf []byte
		pdf, err = io.ReadAll(resp.Body)
		if err == nil {
			metrics.PlanRequest("download_pdf", nil)
			return pdf, nil
		}
		err = errors.Wrap(err, "planapi: read pdf")
	}
	metrics.PlanRequest("download_pdf", err)
	return nil, err
}

func (c *Client) EmailPlan(ctx context.Context, in EmailRequest) (*EmailResponse, error) {
	var out EmailResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/send-plan-email", in, &out)
	metrics.PlanRequest("send_email", err)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "planapi: decode %s", path)
	}
	return nil
}

// send returns the response only for 2xx; other statuses become *APIError.
func (c *Client) send(ctx context.Context, method, path string, in interface{}) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, errors.Wrap(err, "planapi: encode request")
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "planapi: build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "planapi request")
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *Client) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}
