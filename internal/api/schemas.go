package api

import (
	"time"

	"github.com/heimdex/heimdex-studio/internal/media"
	"github.com/heimdex/heimdex-studio/internal/script"
	"github.com/heimdex/heimdex-studio/internal/studio"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State            string       `json:"state"`
	LastError        string       `json:"last_error,omitempty"`
	Scripts          int          `json:"scripts"`
	Segments         int          `json:"segments"`
	ApprovedSegments int          `json:"approved_segments"`
	JobsRunning      int          `json:"jobs_running"`
	ActiveJob        *JobResponse `json:"active_job,omitempty"`
	AutoAssembly     string       `json:"auto_assembly"`
	TransientMedia   int          `json:"transient_media"`
}

type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Fallback string `json:"fallback,omitempty"`
}

type ScriptSummaryResponse struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Version       int64  `json:"version"`
	SegmentCount  int    `json:"segment_count"`
	ApprovedCount int    `json:"approved_count"`
	UpdatedAt     string `json:"updated_at"`
}

type ScriptsResponse struct {
	Scripts []ScriptSummaryResponse `json:"scripts"`
}

// MediaResponse describes a media reference without its inline payload.
// Transient payloads are reachable through PlaybackURL.
type MediaResponse struct {
	URL         string `json:"url,omitempty"`
	Inline      bool   `json:"inline"`
	PlaybackURL string `json:"playback_url,omitempty"`
}

type VisualResponse struct {
	Mode       string          `json:"mode"`
	Status     string          `json:"status"`
	Media      *MediaResponse  `json:"media,omitempty"`
	Image      *MediaResponse  `json:"image,omitempty"`
	Thumbnail  *MediaResponse  `json:"thumbnail,omitempty"`
	Prompt     string          `json:"prompt,omitempty"`
	Transition string          `json:"transition,omitempty"`
	Caption    script.Caption  `json:"caption"`
	License    *script.License `json:"license,omitempty"`
	Resolved   bool            `json:"resolved"`
}

type AudioResponse struct {
	Status    string         `json:"status"`
	Media     *MediaResponse `json:"media,omitempty"`
	DurationS float64        `json:"duration_s"`
	Custom    bool           `json:"custom"`
	VoiceID   string         `json:"voice_id,omitempty"`
	Resolved  bool           `json:"resolved"`
}

type SegmentResponse struct {
	ID        string         `json:"id"`
	Narration string         `json:"narration"`
	Bullets   []string       `json:"bullets,omitempty"`
	StartS    *float64       `json:"start_s,omitempty"`
	EndS      *float64       `json:"end_s,omitempty"`
	Approved  bool           `json:"approved"`
	Visual    VisualResponse `json:"visual"`
	Audio     *AudioResponse `json:"audio,omitempty"`
	Edit      *script.Edit   `json:"edit,omitempty"`
}

type ScoreResponse struct {
	Media      *MediaResponse  `json:"media,omitempty"`
	Volume     float64         `json:"volume"`
	TrimStartS float64         `json:"trim_start_s"`
	TrimEndS   *float64        `json:"trim_end_s,omitempty"`
	Approved   bool            `json:"approved"`
	Provenance string          `json:"provenance"`
	License    *script.License `json:"license,omitempty"`
}

type ArtifactResponse struct {
	State       string         `json:"state"`
	Mime        string         `json:"mime,omitempty"`
	DurationS   float64        `json:"duration_s"`
	Durable     bool           `json:"durable"`
	Media       *MediaResponse `json:"media,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	ExportedAt  string         `json:"exported_at,omitempty"`
}

type WarningResponse struct {
	SegmentID string `json:"segment_id,omitempty"`
	Field     string `json:"field"`
	Error     string `json:"error"`
}

type ScriptResponse struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	AspectRatio   string            `json:"aspect_ratio,omitempty"`
	Version       int64             `json:"version"`
	AutoAssembled bool              `json:"auto_assembled"`
	Segments      []SegmentResponse `json:"segments"`
	Score         *ScoreResponse    `json:"score,omitempty"`
	Artifact      *ArtifactResponse `json:"artifact,omitempty"`
	Preview       *ArtifactResponse `json:"preview,omitempty"`
	Eligible      []string          `json:"eligible"`
	Warnings      []WarningResponse `json:"warnings,omitempty"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

type StatusRequest struct {
	Status script.Status `json:"status"`
}

type CommitRequest struct {
	SegmentIDs []string `json:"segment_ids,omitempty"`
}

type EditResponse struct {
	SegmentID string      `json:"segment_id"`
	Effective script.Edit `json:"effective"`
	Dirty     bool        `json:"dirty"`
}

type DirtyResponse struct {
	SegmentIDs []string `json:"segment_ids"`
}

type CandidateResponse struct {
	SegmentID string `json:"segment_id"`
	Kind      string `json:"kind"`
	Visual    string `json:"visual"`
	Audio     string `json:"audio,omitempty"`
}

type ExclusionResponse struct {
	SegmentID string `json:"segment_id"`
	Reason    string `json:"reason"`
}

type EligibleResponse struct {
	Count    int                 `json:"count"`
	Eligible []CandidateResponse `json:"eligible"`
	Excluded []ExclusionResponse `json:"excluded"`
}

type JobResponse struct {
	ID          string `json:"id"`
	ScriptID    string `json:"script_id"`
	Kind        string `json:"kind"`
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint"`
	Version     int64  `json:"version"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type EDLExportRequest struct {
	OutputDir string  `json:"output_dir"`
	FrameRate float64 `json:"frame_rate"`
}

type EDLExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}

type DistributeResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Bytes    int    `json:"bytes"`
}

func ScriptRecordToResponse(r *studio.ScriptRecord) ScriptSummaryResponse {
	return ScriptSummaryResponse{
		ID:            r.ID,
		Title:         r.Title,
		Version:       r.Version,
		SegmentCount:  r.SegmentCount,
		ApprovedCount: r.ApprovedCount,
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
}

func MediaToResponse(r media.Ref) *MediaResponse {
	if r.IsZero() {
		return nil
	}
	resp := &MediaResponse{URL: r.URL, Inline: r.Data != ""}
	if r.Handle != "" {
		resp.PlaybackURL = "/media/" + media.HandleID(r.Handle)
	}
	return resp
}

func ArtifactToResponse(a *script.Artifact) *ArtifactResponse {
	if a == nil {
		return nil
	}
	resp := &ArtifactResponse{
		State:       string(a.State),
		Mime:        a.Mime,
		DurationS:   a.DurationS,
		Durable:     a.Durable(),
		Media:       MediaToResponse(a.Media),
		Fingerprint: a.Fingerprint,
	}
	if a.ExportedAt != nil {
		resp.ExportedAt = a.ExportedAt.Format(time.RFC3339)
	}
	return resp
}

func SegmentToResponse(seg *script.Segment) SegmentResponse {
	_, _, resolved := seg.Visual.Resolve()
	resp := SegmentResponse{
		ID:        seg.ID,
		Narration: seg.Narration,
		Bullets:   seg.Bullets,
		StartS:    seg.StartS,
		EndS:      seg.EndS,
		Approved:  seg.Approved,
		Visual: VisualResponse{
			Mode:       string(seg.Visual.Mode),
			Status:     string(seg.Visual.Status),
			Media:      MediaToResponse(seg.Visual.Media),
			Image:      MediaToResponse(seg.Visual.Image),
			Thumbnail:  MediaToResponse(seg.Visual.Thumbnail),
			Prompt:     seg.Visual.Prompt,
			Transition: seg.Visual.Transition,
			Caption:    seg.Visual.Caption,
			License:    seg.Visual.License,
			Resolved:   resolved,
		},
	}
	if a := seg.Audio; a != nil {
		_, ok := a.Resolve()
		resp.Audio = &AudioResponse{
			Status:    string(a.Status),
			Media:     MediaToResponse(a.Media),
			DurationS: a.DurationS,
			Custom:    a.Custom,
			VoiceID:   a.VoiceID,
			Resolved:  ok,
		}
	}
	return resp
}

func ScriptToResponse(sc *script.Script, warnings []*script.CodecError) ScriptResponse {
	resp := ScriptResponse{
		ID:            sc.ID,
		Title:         sc.Title,
		AspectRatio:   sc.AspectRatio,
		Version:       sc.Version,
		AutoAssembled: sc.AutoAssembled,
		Segments:      make([]SegmentResponse, len(sc.Segments)),
		Artifact:      ArtifactToResponse(sc.Artifact),
		Preview:       ArtifactToResponse(sc.Preview),
		Eligible:      script.Eligible(sc),
		CreatedAt:     sc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     sc.UpdatedAt.Format(time.RFC3339),
	}
	if resp.Eligible == nil {
		resp.Eligible = []string{}
	}
	for i := range sc.Segments {
		seg := &sc.Segments[i]
		resp.Segments[i] = SegmentToResponse(seg)
		if e, ok := sc.Edits[seg.ID]; ok && !e.IsZero() {
			e := e.Clone()
			resp.Segments[i].Edit = &e
		}
	}
	if b := sc.Score; b != nil {
		resp.Score = &ScoreResponse{
			Media:      MediaToResponse(b.Media),
			Volume:     b.Volume,
			TrimStartS: b.TrimStartS,
			TrimEndS:   b.TrimEndS,
			Approved:   b.Approved,
			Provenance: string(b.Provenance),
			License:    b.License,
		}
	}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, WarningResponse{SegmentID: w.SegmentID, Field: w.Field, Error: w.Error()})
	}
	return resp
}

func EligibilityToResponse(eligible []script.Candidate, excluded []script.Exclusion) EligibleResponse {
	resp := EligibleResponse{
		Count:    len(eligible),
		Eligible: make([]CandidateResponse, len(eligible)),
		Excluded: make([]ExclusionResponse, len(excluded)),
	}
	for i, c := range eligible {
		cr := CandidateResponse{SegmentID: c.SegmentID, Kind: string(c.Kind), Visual: c.Visual.Identity()}
		if c.Audio != nil {
			cr.Audio = c.Audio.Identity()
		}
		resp.Eligible[i] = cr
	}
	for i, ex := range excluded {
		resp.Excluded[i] = ExclusionResponse{SegmentID: ex.SegmentID, Reason: ex.Reason}
	}
	return resp
}

func JobToResponse(j *studio.RenderJob) JobResponse {
	return JobResponse{
		ID:          j.ID,
		ScriptID:    j.ScriptID,
		Kind:        j.Kind,
		Status:      j.Status,
		Fingerprint: j.Fingerprint,
		Version:     j.Version,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   j.UpdatedAt.Format(time.RFC3339),
	}
}
