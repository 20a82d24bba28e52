// Package render talks to the external video renderer and the distribution
// hand-off endpoint.
package render

import (
	"context"
	"errors"
	"log/slog"

	"github.com/heimdex/heimdex-studio/internal/assembly"
	"github.com/heimdex/heimdex-studio/internal/script"
)

// Result is a rendered video.
type Result struct {
	Data      []byte
	Mime      string
	DurationS float64
}

// Call identifies one render attempt. Version increases per script so late
// responses can be recognized.
type Call struct {
	Version     int64
	Fingerprint string
}

type Client interface {
	Preview(ctx context.Context, call Call, req *assembly.Request) (*Result, error)
	Assemble(ctx context.Context, call Call, req *assembly.Request) (*Result, error)
}

// Handoff is the payload forwarded to a distribution target.
type Handoff struct {
	ScriptID  string  `json:"script_id"`
	Title     string  `json:"title"`
	Filename  string  `json:"filename"`
	Mime      string  `json:"mime"`
	DurationS float64 `json:"duration_s"`
	Data      string  `json:"data"`
}

type Distributor interface {
	Distribute(ctx context.Context, h Handoff) error
}

var ErrNotConfigured = errors.New("not configured")

// StubClient is used when no renderer is configured. Every call fails with a
// provider error suggesting manual export.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Preview(ctx context.Context, call Call, req *assembly.Request) (*Result, error) {
	return nil, c.unavailable("preview", req)
}

func (c *StubClient) Assemble(ctx context.Context, call Call, req *assembly.Request) (*Result, error) {
	return nil, c.unavailable("assemble", req)
}

func (c *StubClient) unavailable(op string, req *assembly.Request) error {
	c.logger.Info("render stub: request dropped", "op", op, "script_id", req.ScriptID, "segments", len(req.Segments))
	return &script.ProviderError{Provider: "renderer", Err: ErrNotConfigured}
}

// StubDistributor is used when no distribution target is configured.
type StubDistributor struct {
	logger *slog.Logger
}

func NewStubDistributor(logger *slog.Logger) *StubDistributor {
	return &StubDistributor{logger: logger}
}

func (d *StubDistributor) Distribute(ctx context.Context, h Handoff) error {
	d.logger.Info("distribution stub: hand-off dropped", "script_id", h.ScriptID, "filename", h.Filename)
	return &script.ProviderError{Provider: "distribution", Err: ErrNotConfigured}
}
