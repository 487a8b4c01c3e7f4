// Package gemapi is the HTTP client for the marketplace endpoints the listing
// workflow consumes. The backend owns the contract; this package only speaks it.
package gemapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/johnrirwin/gemlisting/internal/auth"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
)

const (
	pathExtractLabReport    = "/api/gems/extract-lab-report"
	pathExtractLabReportURL = "/api/gems/extract-lab-report-url"
	pathGenerateUploadURLs  = "/api/gems/generate-upload-urls"
	pathGems                = "/api/gems"
	pathGemsAsync           = "/api/gems/async"
	pathGemJobs             = "/api/gems/jobs/"
	pathAdminGems           = "/api/admin/gems"
	pathLabReport           = "/api/gems/lab-report"

	labReportField = "labReport"
	maxBodyBytes   = 4 << 20
)

// Config holds client settings
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	UploadTimeout time.Duration
	UserAgent     string
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:5000",
		Timeout:       30 * time.Second,
		UploadTimeout: 10 * time.Minute,
		UserAgent:     "gemlist/1.0",
	}
}

// Client calls the marketplace REST API
type Client struct {
	baseURL   string
	userAgent string
	api       *http.Client
	storage   *http.Client
	tokens    auth.TokenSource
	logger    *logging.Logger
}

// New creates a Client. tokens may be nil for unauthenticated calls.
func New(cfg Config, tokens auth.TokenSource, logger *logging.Logger) *Client {
	defaults := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaults.UploadTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		api:       &http.Client{Timeout: cfg.Timeout},
		storage:   &http.Client{Timeout: cfg.UploadTimeout},
		tokens:    tokens,
		logger:    logger,
	}
}

// ExtractFromFile uploads a lab report for OCR. onProgress tracks the upload body.
func (c *Client) ExtractFromFile(ctx context.Context, file *media.File, onProgress ProgressFunc) (*models.ExtractionResponse, error) {
	if file == nil {
		return nil, fmt.Errorf("lab report file is required")
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open lab report: %w", err)
	}
	defer rc.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, labReportField, file.Name))
	header.Set("Content-Type", file.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return nil, fmt.Errorf("failed to read lab report: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	size := int64(body.Len())
	req, err := c.newRequest(ctx, http.MethodPost, pathExtractLabReport, newProgressReader(&body, size, onProgress))
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.doExtraction(req)
}

// ExtractFromURL asks the backend to fetch and OCR an already stored lab report
func (c *Client) ExtractFromURL(ctx context.Context, reportURL string) (*models.ExtractionResponse, error) {
	if strings.TrimSpace(reportURL) == "" {
		return nil, fmt.Errorf("lab report url is required")
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, pathExtractLabReportURL, map[string]string{"url": reportURL})
	if err != nil {
		return nil, err
	}
	return c.doExtraction(req)
}

// doExtraction keeps the envelope of non-2xx answers so callers can map the
// backend message instead of a bare status code.
func (c *Client) doExtraction(req *http.Request) (*models.ExtractionResponse, error) {
	status, body, err := c.do(c.api, req)
	if err != nil {
		return nil, err
	}

	var env models.APIResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newAPIError(status, body)
	}

	out := &models.ExtractionResponse{
		Success: env.Success && status < http.StatusBadRequest,
		Message: firstNonEmpty(env.Message, env.Error),
	}
	if !out.Success && out.Message == "" {
		out.Message = http.StatusText(status)
	}
	if out.Success && len(env.Data) > 0 && !bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		var meta models.ExtractedMetadata
		if err := json.Unmarshal(env.Data, &meta); err != nil {
			return nil, fmt.Errorf("failed to decode extracted metadata: %w", err)
		}
		out.Data = &meta
	}
	return out, nil
}

// GenerateUploadURLs requests pre-signed targets for a whole batch in one call
func (c *Client) GenerateUploadURLs(ctx context.Context, files []models.UploadURLRequest) ([]models.UploadTarget, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, pathGenerateUploadURLs, map[string]interface{}{"files": files})
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(c.api, req)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, newAPIError(status, body)
	}

	// Older deployments answer with a bare array
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var targets []models.UploadTarget
		if err := json.Unmarshal(trimmed, &targets); err != nil {
			return nil, fmt.Errorf("failed to decode upload urls: %w", err)
		}
		return targets, nil
	}

	data, err := unwrap(status, body)
	if err != nil {
		return nil, err
	}
	var targets []models.UploadTarget
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("failed to decode upload urls: %w", err)
	}
	return targets, nil
}

// UploadToStorage PUTs the file bytes to a pre-signed URL. No bearer token is
// sent; the signature in the URL is the credential.
func (c *Client) UploadToStorage(ctx context.Context, uploadURL string, file *media.File, onProgress ProgressFunc) error {
	if file == nil {
		return fmt.Errorf("file is required")
	}
	if _, err := url.ParseRequestURI(uploadURL); err != nil {
		return fmt.Errorf("invalid upload url: %w", err)
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, newProgressReader(rc, file.Size, onProgress))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = file.Size
	req.Header.Set("Content-Type", file.ContentType)

	status, body, err := c.do(c.storage, req)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return newAPIError(status, body)
	}
	return nil
}

// CreateGem creates a listing synchronously
func (c *Client) CreateGem(ctx context.Context, payload models.GemPayload) (*models.GemRecord, error) {
	return c.sendGem(ctx, http.MethodPost, pathGems, payload)
}

// UpdateGem updates an existing listing
func (c *Client) UpdateGem(ctx context.Context, gemID string, payload models.GemPayload) (*models.GemRecord, error) {
	if strings.TrimSpace(gemID) == "" {
		return nil, fmt.Errorf("gem id is required")
	}
	return c.sendGem(ctx, http.MethodPut, pathGems+"/"+url.PathEscape(gemID), payload)
}

// AdminCreateGem creates a listing on behalf of a seller
func (c *Client) AdminCreateGem(ctx context.Context, payload models.GemPayload) (*models.GemRecord, error) {
	return c.sendGem(ctx, http.MethodPost, pathAdminGems, payload)
}

func (c *Client) sendGem(ctx context.Context, method, path string, payload models.GemPayload) (*models.GemRecord, error) {
	req, err := c.newJSONRequest(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(c.api, req)
	if err != nil {
		return nil, err
	}
	data, err := unwrap(status, body)
	if err != nil {
		return nil, err
	}

	record := &models.GemRecord{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, record); err != nil {
			return nil, fmt.Errorf("failed to decode gem: %w", err)
		}
	}
	return record, nil
}

// SubmitGemAsync hands the listing to a background job and returns its id
func (c *Client) SubmitGemAsync(ctx context.Context, payload models.GemPayload) (string, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, pathGemsAsync, payload)
	if err != nil {
		return "", err
	}

	status, body, err := c.do(c.api, req)
	if err != nil {
		return "", err
	}
	data, err := unwrap(status, body)
	if err != nil {
		return "", err
	}

	var accepted models.AsyncSubmission
	if err := json.Unmarshal(data, &accepted); err != nil {
		return "", fmt.Errorf("failed to decode async submission: %w", err)
	}
	if accepted.JobID == "" {
		return "", &APIError{StatusCode: status, Message: "backend accepted the submission without a job id"}
	}
	return accepted.JobID, nil
}

// JobStatus fetches the progress of a background job
func (c *Client) JobStatus(ctx context.Context, jobID string) (*models.JobProgress, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathGemJobs+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.do(c.api, req)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, newAPIError(status, body)
	}

	// Bare progress objects and enveloped ones are both accepted; an envelope
	// that reports failure is an error even with a 200
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Success != nil && !*env.Success {
			return nil, &APIError{StatusCode: status, Message: firstNonEmpty(env.Message, env.Error, "job status request was not successful"), Body: string(body)}
		}
		if len(env.Data) > 0 {
			body = env.Data
		}
	}

	var progress models.JobProgress
	if err := json.Unmarshal(body, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode job status: %w", err)
	}
	if progress.JobID == "" {
		progress.JobID = jobID
	}
	return &progress, nil
}

// DeleteLabReport removes a superseded lab report from storage
func (c *Client) DeleteLabReport(ctx context.Context, s3Key string) error {
	req, err := c.newJSONRequest(ctx, http.MethodDelete, pathLabReport, map[string]string{"s3Key": s3Key})
	if err != nil {
		return err
	}

	status, body, err := c.do(c.api, req)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return newAPIError(status, body)
	}
	return nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, v interface{}) (*http.Request, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	if c.tokens != nil {
		if session, err := c.tokens.Session(); err == nil {
			req.Header.Set("Authorization", "Bearer "+session.Token)
		}
	}
	return req, nil
}

func (c *Client) do(hc *http.Client, req *http.Request) (int, []byte, error) {
	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("API call", logging.WithFields(map[string]interface{}{
			"method":   req.Method,
			"path":     req.URL.Path,
			"status":   resp.StatusCode,
			"duration": time.Since(start).String(),
		}))
	}
	return resp.StatusCode, body, nil
}

// unwrap returns the data of a successful {success, data, message} envelope
func unwrap(status int, body []byte) (json.RawMessage, error) {
	if status >= http.StatusBadRequest {
		return nil, newAPIError(status, body)
	}

	var env models.APIResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, newAPIError(status, body)
	}
	if !env.Success {
		return nil, &APIError{StatusCode: status, Message: firstNonEmpty(env.Message, env.Error, "request was not successful"), Body: string(body)}
	}
	return env.Data, nil
}
