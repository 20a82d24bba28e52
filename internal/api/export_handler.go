package api

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-studio/internal/export"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

const defaultFrameRate = 30.0

func renderHandler(cfg ServerConfig, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			job *studio.RenderJob
			err error
		)
		if kind == studio.JobKindPreview {
			job, err = cfg.Service.Preview(r.Context(), id)
		} else {
			job, err = cfg.Service.Assemble(r.Context(), id)
		}
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func attachment(w http.ResponseWriter, filename, contentType string, size int) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(size))
	w.Header().Set("Cache-Control", "no-store")
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dl, err := cfg.Service.Export(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		attachment(w, dl.Filename, dl.Mime, len(dl.Data))
		w.WriteHeader(http.StatusOK)
		w.Write(dl.Data)
	}
}

func distributeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dl, err := cfg.Service.Distribute(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, DistributeResponse{Status: "ok", Filename: dl.Filename, Bytes: len(dl.Data)})
	}
}

func frameRateParam(w http.ResponseWriter, raw string) (float64, bool) {
	if raw == "" {
		return defaultFrameRate, true
	}
	fps, err := strconv.ParseFloat(raw, 64)
	if err != nil || fps <= 0 || fps > 240 {
		WriteError(w, http.StatusBadRequest, "frame_rate must be between 0 and 240", "BAD_REQUEST")
		return 0, false
	}
	return fps, true
}

// edlDownloadHandler returns the timeline of the current assembly request
// as an EDL attachment.
func edlDownloadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fps, ok := frameRateParam(w, r.URL.Query().Get("frame_rate"))
		if !ok {
			return
		}

		tl, err := cfg.Service.TimelineEDL(r.Context(), chi.URLParam(r, "id"), fps)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		attachment(w, tl.Filename, "text/plain; charset=utf-8", len(tl.EDL))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(tl.EDL))
	}
}

// exportEDLHandler writes the EDL sidecar into a local directory, for
// editors that pick up project files from disk.
func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EDLExportRequest
		if !decodeBody(w, r, &req) {
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		fps := req.FrameRate
		if fps == 0 {
			fps = defaultFrameRate
		}
		if fps < 0 || fps > 240 {
			WriteError(w, http.StatusBadRequest, "frame_rate must be between 0 and 240", "BAD_REQUEST")
			return
		}

		id := chi.URLParam(r, "id")
		tl, err := cfg.Service.TimelineEDL(r.Context(), id, fps)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		outputPath := filepath.Join(req.OutputDir, tl.Filename)
		if err := os.WriteFile(outputPath, []byte(tl.EDL), 0o644); err != nil {
			cfg.Logger.Error("failed to write edl", "script_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, EDLExportResponse{
			Status:     "ok",
			Format:     "edl",
			OutputPath: outputPath,
			ClipCount:  tl.Clips,
		})
	}
}
