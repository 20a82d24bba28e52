package playback

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heimdex/heimdex-studio/internal/media"
)

func TestServeHandle(t *testing.T) {
	store := media.NewStore(nil)
	h := store.Register([]byte("0123456789"), "video/mp4")
	srv := NewServer(store, nil)

	tests := []struct {
		name       string
		handle     string
		rangeHdr   string
		wantStatus int
		wantBody   string
		wantRange  string
	}{
		{name: "whole payload", handle: h, wantStatus: http.StatusOK, wantBody: "0123456789"},
		{name: "partial", handle: h, rangeHdr: "bytes=2-5", wantStatus: http.StatusPartialContent, wantBody: "2345", wantRange: "bytes 2-5/10"},
		{name: "suffix", handle: h, rangeHdr: "bytes=-3", wantStatus: http.StatusPartialContent, wantBody: "789", wantRange: "bytes 7-9/10"},
		{name: "unsatisfiable", handle: h, rangeHdr: "bytes=20-", wantStatus: http.StatusRequestedRangeNotSatisfiable, wantRange: "bytes */10"},
		{name: "malformed range ignored", handle: h, rangeHdr: "pages=1", wantStatus: http.StatusOK, wantBody: "0123456789"},
		{name: "unknown handle", handle: "blob:studio/missing", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/media/x", nil)
			if tt.rangeHdr != "" {
				req.Header.Set("Range", tt.rangeHdr)
			}
			rec := httptest.NewRecorder()

			if err := srv.ServeHandle(rec, req, tt.handle); err != nil {
				t.Fatalf("ServeHandle() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" {
				body, _ := io.ReadAll(rec.Body)
				if string(body) != tt.wantBody {
					t.Errorf("body = %q, want %q", body, tt.wantBody)
				}
			}
			if got := rec.Header().Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
		})
	}
}

func TestServeHandle_RevokedHandle(t *testing.T) {
	store := media.NewStore(nil)
	h := store.Register([]byte("gone"), "audio/mpeg")
	store.Revoke(h)

	rec := httptest.NewRecorder()
	if err := NewServer(store, nil).ServeHandle(rec, httptest.NewRequest(http.MethodGet, "/", nil), h); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
