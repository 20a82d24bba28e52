package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heimdex/heimdex-studio/internal/assembly"
	"github.com/heimdex/heimdex-studio/internal/export"
	"github.com/heimdex/heimdex-studio/internal/logging"
	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/render"
	"github.com/heimdex/heimdex-studio/internal/script"
)

const defaultVideoMime = "video/mp4"

// Preview renders an ephemeral preview. It never replaces the assembled
// artifact and is not persisted.
func (s *Service) Preview(ctx context.Context, id string) (*RenderJob, error) {
	return s.render(ctx, id, JobKindPreview)
}

// Assemble renders the durable artifact.
func (s *Service) Assemble(ctx context.Context, id string) (*RenderJob, error) {
	return s.render(ctx, id, JobKindAssemble)
}

// AutoAssemble is invoked by the scheduler once approvals settle.
func (s *Service) AutoAssemble(ctx context.Context, id string) error {
	_, err := s.render(ctx, id, JobKindAuto)
	return err
}

// ClearAutoAssembled drops the auto-assembled marker so a later increase in
// eligible segments triggers again.
func (s *Service) ClearAutoAssembled(id string) {
	_, err := s.mutate(context.Background(), id, func(sc *script.Script) error {
		if !sc.AutoAssembled {
			return errNoChange
		}
		sc.AutoAssembled = false
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to clear auto-assembled flag", "script_id", id, "error", err)
	}
}

// ticketKey groups render kinds whose results replace each other.
func ticketKey(id, kind string) string {
	if kind == JobKindPreview {
		return id + "/preview"
	}
	return id + "/assemble"
}

// render builds the request from committed state, calls the renderer and
// applies the result only if nothing newer was started and the script would
// still produce the same request. Otherwise the result is discarded and the
// job is marked stale; that is not an error for the caller.
func (s *Service) render(ctx context.Context, id, kind string) (*RenderJob, error) {
	sc, err := s.CommitEdits(ctx, id)
	if err != nil {
		return nil, err
	}
	req, err := s.builder.Build(sc, nil)
	if err != nil {
		return nil, err
	}
	fp := assembly.Fingerprint(req)

	key := ticketKey(id, kind)
	s.mu.Lock()
	s.tickets[key]++
	ticket := s.tickets[key]
	s.mu.Unlock()

	now := s.now().UTC()
	job := &RenderJob{
		ID:          NewID(),
		ScriptID:    id,
		Kind:        kind,
		Status:      JobStatusRunning,
		Fingerprint: fp,
		Version:     sc.Version,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateRenderJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create render job: %w", err)
	}
	logger := logging.WithJobID(logging.WithScriptID(s.logger, id), job.ID)
	logger.Info("render started", "kind", kind, "segments", len(req.Segments), "version", sc.Version)

	call := render.Call{Version: sc.Version, Fingerprint: fp}
	var res *render.Result
	if kind == JobKindPreview {
		res, err = s.renderer.Preview(ctx, call, req)
	} else {
		res, err = s.renderer.Assemble(ctx, call, req)
	}
	if err != nil {
		s.finishJob(ctx, job, JobStatusFailed, err.Error())
		logger.Warn("render failed", "kind", kind, "error", err)
		return job, err
	}

	_, err = s.mutate(ctx, id, func(cur *script.Script) error {
		if s.tickets[key] != ticket {
			return &script.StalenessError{Want: "newer render", Got: fp}
		}
		latest, err := s.builder.Build(cur, nil)
		if err != nil {
			return &script.StalenessError{Want: "no eligible segments", Got: fp}
		}
		if want := assembly.Fingerprint(latest); want != fp {
			return &script.StalenessError{Want: want, Got: fp}
		}
		s.applyResult(cur, kind, fp, res)
		return nil
	})

	var stale *script.StalenessError
	switch {
	case errors.As(err, &stale):
		logger.Debug("discarding stale render result", "kind", kind, "reason", stale.Error())
		s.finishJob(ctx, job, JobStatusStale, "")
		return job, nil
	case err != nil:
		s.finishJob(ctx, job, JobStatusFailed, err.Error())
		return job, err
	}

	s.finishJob(ctx, job, JobStatusCompleted, "")
	logger.Info("render applied", "kind", kind, "duration_s", res.DurationS, "size", logging.Size(len(res.Data)))
	return job, nil
}

func (s *Service) applyResult(sc *script.Script, kind, fp string, res *render.Result) {
	mime := res.Mime
	if mime == "" {
		mime = defaultVideoMime
	}
	a := &script.Artifact{
		Media:       media.Ref{Handle: s.store.Register(res.Data, mime)},
		Mime:        mime,
		DurationS:   res.DurationS,
		Fingerprint: fp,
	}
	if kind == JobKindPreview {
		a.State = script.ArtifactPreviewed
		sc.Preview = a
		return
	}
	a.State = script.ArtifactAssembled
	a.Media.Data = media.EncodeDataURI(mime, res.Data)
	sc.Artifact = a
	sc.AutoAssembled = kind == JobKindAuto
}

func (s *Service) finishJob(ctx context.Context, job *RenderJob, status, errMsg string) {
	job.Status = status
	job.Error = errMsg
	job.UpdatedAt = s.now().UTC()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.UpdateRenderJobStatus(ctx, job.ID, status, errMsg); err != nil {
		s.logger.Warn("failed to update render job", "job_id", job.ID, "status", status, "error", err)
	}
}

func (s *Service) ListJobs(ctx context.Context, scriptID string, limit int) ([]*RenderJob, error) {
	return s.repo.ListRenderJobs(ctx, scriptID, limit)
}

func (s *Service) GetJob(ctx context.Context, id string) (*RenderJob, error) {
	job, err := s.repo.GetRenderJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &script.NotFoundError{Kind: "job", ID: id}
	}
	return job, nil
}

// ApproveArtifact approves the assembled video for export.
func (s *Service) ApproveArtifact(ctx context.Context, id string) (*script.Script, error) {
	return s.mutate(ctx, id, func(sc *script.Script) error {
		if sc.Artifact != nil && (sc.Artifact.State == script.ArtifactApproved || sc.Artifact.State == script.ArtifactExported) {
			return errNoChange
		}
		return export.Approve(sc.Artifact)
	})
}

// Export returns the approved video as a download. Exporting again returns
// the same payload and name.
func (s *Service) Export(ctx context.Context, id string) (*export.Download, error) {
	dl, _, err := s.export(ctx, id)
	return dl, err
}

// export builds the download and the matching hand-off from one snapshot of
// the artifact.
func (s *Service) export(ctx context.Context, id string) (*export.Download, render.Handoff, error) {
	var (
		dl *export.Download
		h  render.Handoff
	)
	_, err := s.mutate(ctx, id, func(sc *script.Script) error {
		already := sc.Artifact != nil && sc.Artifact.State == script.ArtifactExported
		d, err := export.Export(sc.Artifact, sc.Title, s.now())
		if err != nil {
			return err
		}
		dl = d
		h = render.Handoff{
			ScriptID:  id,
			Title:     sc.Title,
			Filename:  d.Filename,
			Mime:      d.Mime,
			DurationS: sc.Artifact.DurationS,
			Data:      media.EncodeDataURI(d.Mime, d.Data),
		}
		if already {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil, render.Handoff{}, err
	}
	s.logger.Info("artifact exported", "script_id", id, "filename", dl.Filename, "size", logging.Size(len(dl.Data)))
	return dl, h, nil
}

// Distribute exports the video and forwards the exported bytes to the
// hand-off target.
func (s *Service) Distribute(ctx context.Context, id string) (*export.Download, error) {
	dl, h, err := s.export(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.distributor.Distribute(ctx, h); err != nil {
		return nil, err
	}
	return dl, nil
}

// Timeline is an edit decision list for a script's assembly.
type Timeline struct {
	EDL      string
	Filename string
	Clips    int
}

// TimelineEDL renders an edit decision list for the request the script
// would currently send to the renderer.
func (s *Service) TimelineEDL(ctx context.Context, id string, frameRate float64) (*Timeline, error) {
	req, err := s.BuildRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	clips := export.TimelineClips(req)
	name := export.SanitizeName(req.Title, 80)
	if name == "" {
		name = "timeline"
	}
	return &Timeline{
		EDL:      export.GenerateEDL(clips, req.Title, frameRate),
		Filename: name + ".edl",
		Clips:    len(clips),
	}, nil
}
