package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-studio/internal/config"
	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

const maxJSONBody = 64 << 20

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Get("/media/{id}", mediaHandler(cfg))
		r.Head("/media/{id}", mediaHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/auto-assembly/pause", autoAssemblyHandler(cfg, true))
		r.Post("/auto-assembly/resume", autoAssemblyHandler(cfg, false))

		r.Get("/scripts", listScriptsHandler(cfg))
		r.Post("/scripts", createScriptHandler(cfg))
		r.Route("/scripts/{id}", func(r chi.Router) {
			r.Get("/", getScriptHandler(cfg))
			r.Delete("/", deleteScriptHandler(cfg))
			r.Post("/save", saveScriptHandler(cfg))
			r.Post("/reload", reloadScriptHandler(cfg))
			r.Get("/document", documentHandler(cfg))
			r.Get("/eligible", eligibleHandler(cfg))
			r.Get("/request", requestHandler(cfg))
			r.Get("/jobs", scriptJobsHandler(cfg))

			r.Route("/segments/{sid}", func(r chi.Router) {
				r.Put("/visual", updateVisualHandler(cfg))
				r.Put("/visual/upload", uploadVisualHandler(cfg))
				r.Post("/visual/status", setStatusHandler(cfg, cfg.Service.SetVisualStatus))
				r.Post("/visual/approve", segmentActionHandler(cfg, cfg.Service.ApproveVisual))
				r.Post("/visual/reject", segmentActionHandler(cfg, cfg.Service.RejectVisual))
				r.Post("/visual/regenerate", segmentActionHandler(cfg, cfg.Service.RegenerateVisual))

				r.Put("/audio", updateAudioHandler(cfg))
				r.Put("/audio/upload", uploadAudioHandler(cfg))
				r.Post("/audio/status", setStatusHandler(cfg, cfg.Service.SetAudioStatus))
				r.Post("/audio/approve", segmentActionHandler(cfg, cfg.Service.ApproveAudio))
				r.Post("/audio/reject", segmentActionHandler(cfg, cfg.Service.RejectAudio))
				r.Post("/audio/regenerate", segmentActionHandler(cfg, cfg.Service.RegenerateAudio))

				r.Get("/edit", getEditHandler(cfg))
				r.Patch("/edit", editSegmentHandler(cfg))
			})

			r.Get("/edits", dirtyEditsHandler(cfg))
			r.Post("/edits/commit", commitEditsHandler(cfg))
			r.Post("/edits/discard", discardEditsHandler(cfg))

			r.Put("/score", setScoreHandler(cfg))
			r.Post("/score/approve", scriptActionHandler(cfg, cfg.Service.ApproveScore))
			r.Delete("/score", scriptActionHandler(cfg, cfg.Service.ClearScore))

			r.Post("/preview", renderHandler(cfg, studio.JobKindPreview))
			r.Post("/assemble", renderHandler(cfg, studio.JobKindAssemble))
			r.Post("/artifact/approve", scriptActionHandler(cfg, cfg.Service.ApproveArtifact))
			r.Get("/export", exportHandler(cfg))
			r.Get("/export/edl", edlDownloadHandler(cfg))
			r.Post("/export/edl", exportEDLHandler(cfg))
			r.Post("/distribute", distributeHandler(cfg))
		})

		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
	})

	return r
}

// writeServiceError maps a service error onto an HTTP status by its kind.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch script.ErrorKind(err) {
	case script.KindValidation:
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "VALIDATION_ERROR")
	case script.KindNotFound:
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case script.KindProvider:
		resp := ErrorResponse{
			Error:    err.Error(),
			Code:     "PROVIDER_ERROR",
			Fallback: "fetch the assembly request and render it manually",
		}
		var pe *script.ProviderError
		if errors.As(err, &pe) && pe.IsRetryable() {
			resp.Fallback = "retry later, or fetch the assembly request and render it manually"
		}
		WriteJSON(w, http.StatusBadGateway, resp)
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

// writeScript responds with the script's current snapshot.
func writeScript(w http.ResponseWriter, cfg ServerConfig, status int, sc *script.Script) {
	WriteJSON(w, status, ScriptToResponse(sc, cfg.Service.Warnings(sc.ID)))
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		resp := StatusResponse{State: "idle", AutoAssembly: "disabled"}
		if st, err := cfg.Service.Stats(ctx); err == nil {
			resp.Scripts = st.Scripts
			resp.Segments = st.Segments
			resp.ApprovedSegments = st.ApprovedSegments
		}
		resp.TransientMedia = cfg.Service.Store().Len()

		if cfg.Scheduler != nil {
			resp.AutoAssembly = "active"
			if cfg.Scheduler.IsPaused() {
				resp.AutoAssembly = "paused"
			}
		}

		jobs, _ := cfg.Service.ListJobs(ctx, "", 10)
		for _, j := range jobs {
			if j.Status == studio.JobStatusRunning {
				resp.State = "rendering"
				if resp.ActiveJob == nil {
					job := JobToResponse(j)
					resp.ActiveJob = &job
				}
				resp.JobsRunning++
			}
			if j.Status == studio.JobStatusFailed && resp.LastError == "" {
				resp.LastError = j.Error
			}
		}
		if resp.LastError != "" && resp.State == "idle" {
			resp.State = "error"
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func autoAssemblyHandler(cfg ServerConfig, pause bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Scheduler == nil {
			WriteError(w, http.StatusConflict, "auto-assembly is not running", "CONFLICT")
			return
		}
		if pause {
			cfg.Scheduler.Pause()
		} else {
			cfg.Scheduler.Resume()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listScriptsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := cfg.Service.ListScripts(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list scripts", "INTERNAL_ERROR")
			return
		}

		resp := ScriptsResponse{Scripts: make([]ScriptSummaryResponse, len(recs))}
		for i, rec := range recs {
			resp.Scripts[i] = ScriptRecordToResponse(rec)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req studio.NewScript
		if !decodeBody(w, r, &req) {
			return
		}

		sc, err := cfg.Service.CreateScript(r.Context(), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusCreated, sc)
	}
}

func getScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := cfg.Service.GetScript(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func deleteScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.DeleteScript(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func saveScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.Save(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reloadScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := cfg.Service.Reload(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		writeScript(w, cfg, http.StatusOK, sc)
	}
}

func documentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := cfg.Service.Document(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(doc)
	}
}

func eligibleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eligible, excluded, err := cfg.Service.Eligibility(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, EligibilityToResponse(eligible, excluded))
	}
}

func requestHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := cfg.Service.BuildRequest(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, req)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJobs(w, r, cfg, "")
	}
}

func scriptJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJobs(w, r, cfg, chi.URLParam(r, "id"))
	}
}

func writeJobs(w http.ResponseWriter, r *http.Request, cfg ServerConfig, scriptID string) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
			return
		}
		limit = n
	}

	jobs, err := cfg.Service.ListJobs(r.Context(), scriptID, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
		return
	}

	resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
	for i, j := range jobs {
		resp.Jobs[i] = JobToResponse(j)
	}
	WriteJSON(w, http.StatusOK, resp)
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Service.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "media id required", "BAD_REQUEST")
			return
		}

		if err := cfg.PlaybackServer.ServeHandle(w, r, media.HandleFromID(id)); err != nil {
			cfg.Logger.Error("playback error", "error", err, "media_id", id)
		}
	}
}
