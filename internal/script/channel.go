package script

import "fmt"

type Channel string

const (
	ChannelVisual Channel = "visual"
	ChannelAudio  Channel = "audio"
)

// transitions lists the legal moves for a media channel. approved only leaves
// through an explicit regenerate.
var transitions = map[Status][]Status{
	StatusPending:    {StatusGenerating},
	StatusGenerating: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusApproved, StatusRejected},
	StatusRejected:   {StatusPending},
	StatusFailed:     {StatusGenerating},
	StatusApproved:   {StatusGenerating},
}

func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PathTo returns the shortest chain of legal moves from one status to another,
// excluding from itself.
func PathTo(from, to Status) ([]Status, bool) {
	if from == to {
		return nil, true
	}
	prev := map[Status]Status{from: from}
	queue := []Status{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range transitions[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				var path []Status
				for s := to; s != from; s = prev[s] {
					path = append([]Status{s}, path...)
				}
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}

func transitionError(ch Channel, segmentID string, from, to Status) error {
	return &ValidationError{
		Op:     fmt.Sprintf("%s %s", ch, segmentID),
		Reason: fmt.Sprintf("cannot move from %s to %s", from, to),
	}
}

// SetVisualStatus performs one legal visual transition. Approval goes through
// ApproveVisual so the resolvability check cannot be skipped.
func (seg *Segment) SetVisualStatus(to Status) error {
	if to == StatusApproved {
		return seg.ApproveVisual()
	}
	if !CanTransition(seg.Visual.Status, to) {
		return transitionError(ChannelVisual, seg.ID, seg.Visual.Status, to)
	}
	seg.Visual.Status = to
	seg.Approved = false
	return nil
}

// ApproveVisual requires a completed visual with a transmittable source.
func (seg *Segment) ApproveVisual() error {
	if seg.Visual.Status != StatusCompleted {
		return transitionError(ChannelVisual, seg.ID, seg.Visual.Status, StatusApproved)
	}
	if _, _, ok := seg.Visual.Resolve(); !ok {
		return &ValidationError{
			Op:     fmt.Sprintf("visual %s", seg.ID),
			Reason: "no playable source to approve",
		}
	}
	seg.Visual.Status = StatusApproved
	seg.Approved = true
	return nil
}

func (seg *Segment) RejectVisual() error {
	return seg.SetVisualStatus(StatusRejected)
}

// RegenerateVisual re-enters generating, clearing approval. Rejected visuals
// pass through pending.
func (seg *Segment) RegenerateVisual() error {
	path, ok := PathTo(seg.Visual.Status, StatusGenerating)
	if !ok || seg.Visual.Status == StatusGenerating || seg.Visual.Status == StatusCompleted {
		return transitionError(ChannelVisual, seg.ID, seg.Visual.Status, StatusGenerating)
	}
	for _, s := range path {
		if err := seg.SetVisualStatus(s); err != nil {
			return err
		}
	}
	return nil
}

func (seg *Segment) SetAudioStatus(to Status) error {
	if seg.Audio == nil {
		return &ValidationError{Op: fmt.Sprintf("audio %s", seg.ID), Reason: "segment has no audio"}
	}
	if to == StatusApproved {
		return seg.ApproveAudio()
	}
	if !CanTransition(seg.Audio.Status, to) {
		return transitionError(ChannelAudio, seg.ID, seg.Audio.Status, to)
	}
	seg.Audio.Status = to
	return nil
}

func (seg *Segment) ApproveAudio() error {
	if seg.Audio == nil {
		return &ValidationError{Op: fmt.Sprintf("audio %s", seg.ID), Reason: "segment has no audio"}
	}
	if seg.Audio.Status != StatusCompleted {
		return transitionError(ChannelAudio, seg.ID, seg.Audio.Status, StatusApproved)
	}
	if _, ok := seg.Audio.Resolve(); !ok {
		return &ValidationError{
			Op:     fmt.Sprintf("audio %s", seg.ID),
			Reason: "no playable source to approve",
		}
	}
	seg.Audio.Status = StatusApproved
	return nil
}

func (seg *Segment) RejectAudio() error {
	return seg.SetAudioStatus(StatusRejected)
}

func (seg *Segment) RegenerateAudio() error {
	if seg.Audio == nil {
		seg.Audio = &Audio{Status: StatusPending}
	}
	from := seg.Audio.Status
	path, ok := PathTo(from, StatusGenerating)
	if !ok || from == StatusGenerating || from == StatusCompleted {
		return transitionError(ChannelAudio, seg.ID, from, StatusGenerating)
	}
	for _, s := range path {
		if err := seg.SetAudioStatus(s); err != nil {
			return err
		}
	}
	return nil
}
