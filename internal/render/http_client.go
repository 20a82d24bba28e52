package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/heimdex/heimdex-studio/internal/assembly"
	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
)

const (
	maxErrorBody  = 4096
	maxResultBody = 1 << 30
)

// renderResponse is the renderer's reply. Data is a base64 data URI.
type renderResponse struct {
	Data      string  `json:"data"`
	DurationS float64 `json:"duration_s"`
	Mime      string  `json:"mime,omitempty"`
}

// HTTPClient posts assembly requests to the renderer service.
type HTTPClient struct {
	baseURL    string
	token      string
	deviceID   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *HTTPClient) SetDeviceID(id string) {
	c.deviceID = id
}

func (c *HTTPClient) Preview(ctx context.Context, call Call, req *assembly.Request) (*Result, error) {
	return c.render(ctx, "/api/render/preview", call, req)
}

func (c *HTTPClient) Assemble(ctx context.Context, call Call, req *assembly.Request) (*Result, error) {
	return c.render(ctx, "/api/render/assemble", call, req)
}

func (c *HTTPClient) render(ctx context.Context, path string, call Call, payload *assembly.Request) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal assembly request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("X-Studio-Render-Version", strconv.FormatInt(call.Version, 10))
	req.Header.Set("X-Studio-Fingerprint", call.Fingerprint)

	c.logger.Info("sending render request",
		"url", url,
		"script_id", payload.ScriptID,
		"segments", len(payload.Segments),
		"version", call.Version,
		"body", humanize.Bytes(uint64(len(body))),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &script.ProviderError{Provider: "renderer", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &script.ProviderError{Provider: "renderer", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out renderResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResultBody)).Decode(&out); err != nil {
		return nil, &script.ProviderError{Provider: "renderer", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	mime, data, err := media.DecodeDataURI(out.Data)
	if err != nil {
		return nil, &script.ProviderError{Provider: "renderer", StatusCode: resp.StatusCode, Err: fmt.Errorf("render payload: %w", err)}
	}
	if out.Mime != "" {
		mime = out.Mime
	}

	c.logger.Info("render succeeded",
		"script_id", payload.ScriptID,
		"duration_s", out.DurationS,
		"size", humanize.Bytes(uint64(len(data))),
	)
	return &Result{Data: data, Mime: mime, DurationS: out.DurationS}, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Studio-Request-Id", uuid.NewString())
	if c.deviceID != "" {
		req.Header.Set("X-Studio-Device-Id", c.deviceID)
	}
}

// HTTPDistributor forwards exported videos to a distribution target.
type HTTPDistributor struct {
	*HTTPClient
}

func NewHTTPDistributor(baseURL, token string, logger *slog.Logger) *HTTPDistributor {
	return &HTTPDistributor{HTTPClient: NewHTTPClient(baseURL, token, 5*time.Minute, logger)}
}

func (d *HTTPDistributor) Distribute(ctx context.Context, h Handoff) error {
	body, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal hand-off: %w", err)
	}

	url := d.baseURL + "/api/handoff"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	d.setHeaders(req)

	d.logger.Info("handing off export", "url", url, "script_id", h.ScriptID, "filename", h.Filename, "size", humanize.Bytes(uint64(len(h.Data))))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &script.ProviderError{Provider: "distribution", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &script.ProviderError{Provider: "distribution", StatusCode: resp.StatusCode, Body: string(respBody)}
}
