// Package playback serves transient media handles to the local editor with
// byte-range support, so video elements can seek without the payload being
// persisted first.
package playback

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/heimdex/heimdex-studio/internal/media"
)

type PlaybackService interface {
	ServeHandle(w http.ResponseWriter, r *http.Request, handle string) error
}

type Server struct {
	store  *media.Store
	logger *slog.Logger
}

func NewServer(store *media.Store, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// ServeHandle writes the handle's bytes. The handle is leased for the
// duration of the response, so revoking it mid-stream does not cut playback.
func (s *Server) ServeHandle(w http.ResponseWriter, r *http.Request, handle string) error {
	lease, err := s.store.Acquire(handle)
	if errors.Is(err, media.ErrUnknownHandle) {
		http.Error(w, "media not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("acquire handle: %w", err)
	}
	defer lease.Release()

	size := int64(len(lease.Data))
	contentType := lease.Mime
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")

	parsedRange, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case errors.Is(err, ErrInvalidRange):
		parsedRange = nil
	case err != nil:
		return err
	}

	body := bytes.NewReader(lease.Data)
	if parsedRange == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, body)
		}
		return nil
	}

	w.Header().Set("Content-Length", strconv.FormatInt(parsedRange.ContentLength(), 10))
	w.Header().Set("Content-Range", parsedRange.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method != http.MethodHead {
		io.Copy(w, io.NewSectionReader(body, parsedRange.Start, parsedRange.ContentLength()))
	}
	return nil
}
