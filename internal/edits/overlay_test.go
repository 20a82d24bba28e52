package edits

import (
	"testing"

	"github.com/heimdex/heimdex-studio/internal/script"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func testScript() *script.Script {
	return &script.Script{
		ID: "s1",
		Segments: []script.Segment{
			{ID: "a", Narration: "alpha"},
			{ID: "b", Narration: "beta"},
		},
		Edits: map[string]script.Edit{
			"a": {
				Transition:  strPtr("slide"),
				CaptionText: strPtr("saved caption"),
				Crop:        &script.Crop{StartS: 1, EndS: floatPtr(4)},
			},
		},
	}
}

func TestEffective_PendingWinsFieldByField(t *testing.T) {
	o := NewOverlay()
	s := testScript()

	o.Stage("s1", "a", script.Edit{CaptionText: strPtr("draft caption")})

	eff := o.Effective(s, "a")
	if *eff.CaptionText != "draft caption" {
		t.Errorf("caption = %q, want pending value", *eff.CaptionText)
	}
	if *eff.Transition != "slide" {
		t.Errorf("transition = %q, want committed value", *eff.Transition)
	}
	if eff.Crop == nil || *eff.Crop.EndS != 4 {
		t.Errorf("crop = %+v, want committed crop", eff.Crop)
	}
}

func TestEffective_EmptyBulletsClearCommitted(t *testing.T) {
	o := NewOverlay()
	s := testScript()
	s.Edits["a"] = script.Edit{Bullets: []string{"saved point"}}

	o.Stage("s1", "a", script.Edit{Bullets: []string{}})

	eff := o.Effective(s, "a")
	if eff.Bullets == nil {
		t.Fatal("empty bullet override collapsed to unset")
	}
	if len(eff.Bullets) != 0 {
		t.Errorf("bullets = %v, want cleared", eff.Bullets)
	}
}

func TestEffective_NoEdits(t *testing.T) {
	o := NewOverlay()
	s := testScript()

	if eff := o.Effective(s, "b"); !eff.IsZero() {
		t.Errorf("Effective(b) = %+v, want zero", eff)
	}
}

func TestStage_Accumulates(t *testing.T) {
	o := NewOverlay()
	o.Stage("s1", "b", script.Edit{Transition: strPtr("cut")})
	o.Stage("s1", "b", script.Edit{CaptionZoom: floatPtr(1.5)})

	p, ok := o.Pending("s1", "b")
	if !ok {
		t.Fatal("pending edit missing")
	}
	if *p.Transition != "cut" || *p.CaptionZoom != 1.5 {
		t.Errorf("pending = %+v", p)
	}
}

func TestCommitInto_AndSettle(t *testing.T) {
	o := NewOverlay()
	s := testScript()
	o.Stage("s1", "b", script.Edit{Transition: strPtr("cut")})

	if dirty := o.Dirty(s); len(dirty) != 1 || dirty[0] != "b" {
		t.Fatalf("Dirty() = %v, want [b]", dirty)
	}

	next := s.Clone()
	applied := o.CommitInto(next)
	if len(applied) != 1 {
		t.Fatalf("applied = %v", applied)
	}
	if got := next.Edits["b"].Transition; got == nil || *got != "cut" {
		t.Errorf("committed transition = %v", got)
	}
	if _, ok := s.Edits["b"]; ok {
		t.Error("CommitInto mutated the original snapshot")
	}

	if _, ok := o.Pending("s1", "b"); !ok {
		t.Fatal("pending cleared before Settle")
	}
	o.Settle("s1", applied)
	if _, ok := o.Pending("s1", "b"); ok {
		t.Error("pending not cleared after Settle")
	}
	if dirty := o.Dirty(next); len(dirty) != 0 {
		t.Errorf("Dirty() after commit = %v", dirty)
	}
}

func TestCommit_Idempotent(t *testing.T) {
	o := NewOverlay()
	s := testScript()
	o.Stage("s1", "a", script.Edit{CaptionText: strPtr("new")})

	first := s.Clone()
	o.Settle("s1", o.CommitInto(first))

	second := first.Clone()
	applied := o.CommitInto(second)
	if len(applied) != 0 {
		t.Errorf("second commit applied %v", applied)
	}
	if *second.Edits["a"].CaptionText != "new" {
		t.Error("second commit changed committed state")
	}
}

func TestSettle_KeepsNewerPending(t *testing.T) {
	o := NewOverlay()
	s := testScript()
	o.Stage("s1", "b", script.Edit{Transition: strPtr("cut")})

	applied := o.CommitInto(s.Clone())
	o.Stage("s1", "b", script.Edit{CaptionText: strPtr("late")})
	o.Settle("s1", applied)

	if _, ok := o.Pending("s1", "b"); !ok {
		t.Error("pending edit staged after commit was dropped")
	}
}

func TestDiscard(t *testing.T) {
	o := NewOverlay()
	o.Stage("s1", "a", script.Edit{Transition: strPtr("cut")})
	o.Stage("s1", "b", script.Edit{Transition: strPtr("cut")})

	o.Discard("s1", "a")
	if _, ok := o.Pending("s1", "a"); ok {
		t.Error("a not discarded")
	}
	o.Discard("s1")
	if _, ok := o.Pending("s1", "b"); ok {
		t.Error("b not discarded")
	}
}
