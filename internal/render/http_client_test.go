package render

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-studio/internal/assembly"
	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRequest() *assembly.Request {
	return &assembly.Request{
		ScriptID:    "s1",
		AspectRatio: "9:16",
		Segments: []assembly.SegmentDescriptor{
			{SegmentID: "A", Kind: media.KindClip, Visual: media.Source{URL: "https://cdn.example.com/a.mp4"}, Transition: "fade"},
		},
	}
}

func TestHTTPClient_Assemble_Success(t *testing.T) {
	var received assembly.Request
	var receivedAuth, receivedVersion, receivedFingerprint string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/render/assemble" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		receivedAuth = r.Header.Get("Authorization")
		receivedVersion = r.Header.Get("X-Studio-Render-Version")
		receivedFingerprint = r.Header.Get("X-Studio-Fingerprint")
		if r.Header.Get("X-Studio-Request-Id") == "" {
			t.Error("missing request id header")
		}

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)

		json.NewEncoder(w).Encode(map[string]any{
			"data":       media.EncodeDataURI("video/mp4", []byte("rendered")),
			"duration_s": 12.5,
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", 0, testLogger())

	res, err := client.Assemble(context.Background(), Call{Version: 7, Fingerprint: "fp1"}, testRequest())
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q", receivedAuth)
	}
	if receivedVersion != "7" || receivedFingerprint != "fp1" {
		t.Errorf("version = %q fingerprint = %q", receivedVersion, receivedFingerprint)
	}
	if received.ScriptID != "s1" || len(received.Segments) != 1 {
		t.Errorf("payload = %+v", received)
	}
	if string(res.Data) != "rendered" || res.Mime != "video/mp4" || res.DurationS != 12.5 {
		t.Errorf("result = %q %q %v", res.Data, res.Mime, res.DurationS)
	}
}

func TestHTTPClient_Preview_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/render/preview" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream encoder crashed"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok", 0, testLogger())
	_, err := client.Preview(context.Background(), Call{Version: 1}, testRequest())

	var perr *script.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
	if perr.StatusCode != http.StatusBadGateway || !perr.IsRetryable() {
		t.Errorf("status = %d retryable = %v", perr.StatusCode, perr.IsRetryable())
	}
	if !strings.Contains(perr.Body, "encoder crashed") {
		t.Errorf("body = %q", perr.Body)
	}
}

func TestHTTPClient_ClientErrorNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok", 0, testLogger())
	_, err := client.Assemble(context.Background(), Call{}, testRequest())

	var perr *script.ProviderError
	if !errors.As(err, &perr) || perr.IsRetryable() {
		t.Fatalf("error = %v, want non-retryable ProviderError", err)
	}
}

func TestHTTPClient_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(renderResponse{Data: "not-a-data-uri"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "tok", 0, testLogger())
	_, err := client.Assemble(context.Background(), Call{}, testRequest())
	if script.ErrorKind(err) != script.KindProvider {
		t.Fatalf("error = %v, want provider error", err)
	}
	if !errors.Is(err, media.ErrMalformedDataURI) {
		t.Errorf("error should wrap ErrMalformedDataURI: %v", err)
	}
}

func TestHTTPDistributor(t *testing.T) {
	var got Handoff
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/handoff" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d := NewHTTPDistributor(server.URL, "tok", testLogger())
	err := d.Distribute(context.Background(), Handoff{ScriptID: "s1", Filename: "Report.mp4", Data: "data:video/mp4;base64,AA=="})
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	if got.Filename != "Report.mp4" {
		t.Errorf("filename = %q", got.Filename)
	}
}

func TestStubClient(t *testing.T) {
	c := NewStubClient(testLogger())
	_, err := c.Assemble(context.Background(), Call{}, testRequest())
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}
