package api

import (
	"context"
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

const maxUploadBytes = 512 << 20

type segmentAction func(ctx context.Context, id, sid string) (*script.Script, error)

type segmentStatusAction func(ctx context.Context, id, sid string, to script.Status) (*script.Script, error)

type scriptAction func(ctx context.Context, id string) (*script.Script, error)

func segmentActionHandler(cfg ServerConfig, action segmentAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := action(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sid"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func setStatusHandler(cfg ServerConfig, action segmentStatusAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !script.ValidStatus(req.Status) {
			WriteError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(string(req.Status)), "BAD_REQUEST")
			return
		}

		sc, err := action(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sid"), req.Status)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func scriptActionHandler(cfg ServerConfig, action scriptAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := action(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func updateVisualHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studio.VisualUpdate
		if !decodeBody(w, r, &req) {
			return
		}

		sc, err := cfg.Service.UpdateVisual(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sid"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func updateAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studio.AudioUpdate
		if !decodeBody(w, r, &req) {
			return
		}

		sc, err := cfg.Service.UpdateAudio(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sid"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

// readUpload reads a raw request body as uploaded media. The payload stays
// in memory under a transient handle until it is approved or saved.
func readUpload(w http.ResponseWriter, r *http.Request) (*studio.MediaInput, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "upload too large or unreadable", "BAD_REQUEST")
		return nil, false
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "upload body is empty", "BAD_REQUEST")
		return nil, false
	}
	return &studio.MediaInput{Bytes: data, Mime: r.Header.Get("Content-Type")}, true
}

func uploadVisualHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := readUpload(w, r)
		if !ok {
			return
		}
		req := studio.VisualUpdate{Media: in}
		switch mode := media.Kind(r.URL.Query().Get("mode")); mode {
		case "":
		case media.KindClip, media.KindImage:
			req.Mode = mode
		default:
			WriteError(w, http.StatusBadRequest, "mode must be clip or image", "BAD_REQUEST")
			return
		}
		if req.Mode == media.KindImage {
			req.Image, req.Media = in, nil
		}

		sc, err := cfg.Service.UpdateVisual(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sid"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func uploadAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := readUpload(w, r)
		if !ok {
			return
		}
		req := studio.AudioUpdate{Media: in, Custom: true}
		if v := r.URL.Query().Get("duration_s"); v != "" {
			d, err := strconv.ParseFloat(v, 64)
			if err != nil || d < 0 {
				WriteError(w, http.StatusBadRequest, "duration_s must be a non-negative number", "BAD_REQUEST")
				return
			}
			req.DurationS = d
		}

		sc, err := cfg.Service.UpdateAudio(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "sid"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func setScoreHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studio.ScoreUpdate
		if !decodeBody(w, r, &req) {
			return
		}

		sc, err := cfg.Service.SetScore(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func writeEdit(w http.ResponseWriter, r *http.Request, cfg ServerConfig, sid string, e script.Edit) {
	dirty, err := cfg.Service.DirtySegments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, cfg.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, EditResponse{SegmentID: sid, Effective: e, Dirty: slices.Contains(dirty, sid)})
}

func getEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "sid")
		e, err := cfg.Service.EffectiveEdit(r.Context(), chi.URLParam(r, "id"), sid)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeEdit(w, r, cfg, sid, e)
	}
}

func editSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch script.Edit
		if !decodeBody(w, r, &patch) {
			return
		}

		sid := chi.URLParam(r, "sid")
		e, err := cfg.Service.EditSegment(r.Context(), chi.URLParam(r, "id"), sid, patch)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeEdit(w, r, cfg, sid, e)
	}
}

func dirtyEditsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dirty, err := cfg.Service.DirtySegments(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if dirty == nil {
			dirty = []string{}
		}
		WriteJSON(w, http.StatusOK, DirtyResponse{SegmentIDs: dirty})
	}
}

// decodeOptionalBody accepts an empty body as the zero value.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	return decodeBody(w, r, v)
}

func commitEditsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommitRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}

		sc, err := cfg.Service.CommitEdits(r.Context(), chi.URLParam(r, "id"), req.SegmentIDs...)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func discardEditsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommitRequest
		if !decodeOptionalBody(w, r, &req) {
			return
		}

		if err := cfg.Service.DiscardEdits(r.Context(), chi.URLParam(r, "id"), req.SegmentIDs...); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
