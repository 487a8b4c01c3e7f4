// Package extraction turns a lab report into candidate listing fields via the
// backend OCR endpoints. Failures here never block the workflow; they become
// user-facing messages and the seller continues manually.
package extraction

import (
	"context"
	"strings"

	"github.com/johnrirwin/gemlisting/internal/cache"
	"github.com/johnrirwin/gemlisting/internal/gemapi"
	"github.com/johnrirwin/gemlisting/internal/logging"
	"github.com/johnrirwin/gemlisting/internal/media"
	"github.com/johnrirwin/gemlisting/internal/models"
)

const (
	// MessageServiceUnavailable replaces backend errors that mean the OCR service could not be reached
	MessageServiceUnavailable = "OCR service is temporarily unavailable. Please continue by entering the details manually."
	// MessageNoData is used when extraction succeeded but found no fields
	MessageNoData = "No data could be extracted from this certificate. Please continue by entering the details manually."

	cacheKeyPrefix = "extraction:"
)

// unavailableMarkers are substrings of backend or transport errors that mean
// the OCR service itself is unreachable.
var unavailableMarkers = []string{
	"fetch failed",
	"econnrefused",
	"enotfound",
	"etimedout",
	"socket hang up",
	"network error",
	"unknown error",
	"connection refused",
	"no such host",
	"i/o timeout",
}

// API is the subset of the backend client extraction needs
type API interface {
	ExtractFromFile(ctx context.Context, file *media.File, onProgress gemapi.ProgressFunc) (*models.ExtractionResponse, error)
	ExtractFromURL(ctx context.Context, reportURL string) (*models.ExtractionResponse, error)
}

// Result is either a success with non-empty Metadata or a failure with Message
type Result struct {
	Metadata *models.ExtractedMetadata
	Message  string
}

// OK reports whether the result carries metadata
func (r Result) OK() bool {
	return r.Metadata != nil
}

// Client runs extractions
type Client struct {
	api    API
	cache  cache.Cache
	logger *logging.Logger
}

// NewClient creates an extraction client. resultCache may be nil.
func NewClient(api API, resultCache cache.Cache, logger *logging.Logger) *Client {
	return &Client{api: api, cache: resultCache, logger: logger}
}

// FromFile extracts from a freshly selected lab report file
func (c *Client) FromFile(ctx context.Context, file *media.File, onProgress func(percent int)) Result {
	var progress gemapi.ProgressFunc
	if onProgress != nil {
		progress = gemapi.ProgressFunc(onProgress)
	}

	name := ""
	if file != nil {
		name = file.Name
	}

	resp, err := c.api.ExtractFromFile(ctx, file, progress)
	return c.interpret(resp, err, logging.WithField("file", name))
}

// FromStored extracts from a lab report already in storage. Successful
// results are cached by storage key so a restart does not re-run OCR.
func (c *Client) FromStored(ctx context.Context, d models.StoredCertificateDescriptor) Result {
	if cached, ok := c.cached(d.S3Key); ok {
		c.logger.Debug("Using cached extraction", logging.WithField("s3Key", d.S3Key))
		return Result{Metadata: cached}
	}

	resp, err := c.api.ExtractFromURL(ctx, d.URL)
	result := c.interpret(resp, err, logging.WithField("s3Key", d.S3Key))
	if result.OK() {
		c.store(d.S3Key, result.Metadata)
	}
	return result
}

// Forget drops the cached result for a storage key, e.g. when the report is replaced
func (c *Client) Forget(s3Key string) {
	if c.cache != nil && s3Key != "" {
		c.cache.Delete(cacheKeyPrefix + s3Key)
	}
}

func (c *Client) interpret(resp *models.ExtractionResponse, err error, fields logging.Fields) Result {
	if err != nil {
		msg := UserMessage(gemapi.MessageOf(err))
		c.logger.Warn("Lab report extraction failed", fields, logging.WithField("error", err.Error()))
		return Result{Message: msg}
	}

	if resp == nil || !resp.Success {
		backendMsg := ""
		if resp != nil {
			backendMsg = resp.Message
		}
		msg := UserMessage(backendMsg)
		c.logger.Warn("Lab report extraction rejected", fields, logging.WithField("message", backendMsg))
		return Result{Message: msg}
	}

	// A successful call with nothing in it is still a failure for the seller
	if resp.Data == nil || resp.Data.IsEmpty() {
		c.logger.Info("Lab report extraction returned no fields", fields)
		return Result{Message: MessageNoData}
	}

	c.logger.Info("Lab report extracted", fields)
	return Result{Metadata: resp.Data}
}

// UserMessage maps a backend error message to the text shown to the seller.
// Unreachable-service errors collapse into one message; others pass through.
func UserMessage(backendMsg string) string {
	trimmed := strings.TrimSpace(backendMsg)
	if trimmed == "" {
		return MessageServiceUnavailable
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range unavailableMarkers {
		if strings.Contains(lower, marker) {
			return MessageServiceUnavailable
		}
	}
	return trimmed
}

func (c *Client) cached(s3Key string) (*models.ExtractedMetadata, bool) {
	if c.cache == nil || s3Key == "" {
		return nil, false
	}
	var meta models.ExtractedMetadata
	if !cache.GetJSON(c.cache, cacheKeyPrefix+s3Key, &meta) {
		return nil, false
	}
	if meta.IsEmpty() {
		c.cache.Delete(cacheKeyPrefix + s3Key)
		return nil, false
	}
	return &meta, true
}

func (c *Client) store(s3Key string, meta *models.ExtractedMetadata) {
	if c.cache == nil || s3Key == "" {
		return
	}
	if err := cache.SetJSON(c.cache, cacheKeyPrefix+s3Key, meta); err != nil {
		c.logger.Warn("Failed to encode extraction for cache", logging.WithField("error", err.Error()))
	}
}
