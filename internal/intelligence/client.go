package intelligence

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Client calls the extraction and valuation endpoints over HTTP.
// It implements both Extractor and Valuator.
type Client struct {
	cfg    *Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates an intelligence client from the given configuration.
func NewClient(cfg *Config, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.TimeoutDuration()},
		logger: logger.With("system", "intelligence"),
	}
}

type extractRequest struct {
	PDFBase64  string `json:"pdf_base64"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

type valuateRequest struct {
	ReportID       string            `json:"report_id"`
	ExtractedFacts []json.RawMessage `json:"extracted_facts"`
}

// envelope is the response wrapper both endpoints return.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Extract(ctx context.Context, doc DocumentPayload) (json.RawMessage, error) {
	req := extractRequest{
		PDFBase64:  base64.StdEncoding.EncodeToString(doc.Data),
		DocumentID: doc.DocumentID.String(),
		Filename:   doc.Filename,
	}

	c.logger.Info("extraction requested", "document_id", doc.DocumentID, "filename", doc.Filename)
	return c.post(ctx, c.cfg.ExtractURL, req)
}

func (c *Client) Valuate(ctx context.Context, reportID uuid.UUID, facts []json.RawMessage) (json.RawMessage, error) {
	req := valuateRequest{
		ReportID:       reportID.String(),
		ExtractedFacts: facts,
	}

	c.logger.Info("valuation requested", "report_id", reportID, "documents", len(facts))
	return c.post(ctx, c.cfg.ValuateURL, req)
}

func (c *Client) post(ctx context.Context, url string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if !env.Success {
		opErr := &OperationError{Code: "UNKNOWN_ERROR", Message: "operation failed without detail"}
		if env.Error != nil {
			opErr.Code = env.Error.Code
			opErr.Message = env.Error.Message
		}
		return nil, opErr
	}

	return env.Data, nil
}
