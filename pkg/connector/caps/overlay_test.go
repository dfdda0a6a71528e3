package caps

import (
	"testing"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

type stubCaps struct {
	domain.BaseCapabilities
}

func (stubCaps) SupportsOrderBy() bool          { return true }
func (stubCaps) MaxInCriteriaSize() int         { return 500 }
func (stubCaps) SupportsFunction(n string) bool { return n == "upper" }

func TestOverlayPassThrough(t *testing.T) {
	o := NewOverlay(stubCaps{}, nil)

	if !o.SupportsOrderBy() {
		t.Error("SupportsOrderBy should pass through as true")
	}
	if o.SupportsOuterJoins() {
		t.Error("SupportsOuterJoins should pass through as false")
	}
	if got := o.MaxInCriteriaSize(); got != 500 {
		t.Errorf("MaxInCriteriaSize = %d, want 500", got)
	}
}

func TestOverlayBoolOverride(t *testing.T) {
	o := NewOverlay(stubCaps{}, map[string]string{
		"SupportsOuterJoins": "true",
		"SupportsOrderBy":    "false",
	})

	if !o.SupportsOuterJoins() {
		t.Error("override should force SupportsOuterJoins true")
	}
	if o.SupportsOrderBy() {
		t.Error("override should force SupportsOrderBy false")
	}
	if o.SupportsRowLimit() {
		t.Error("unoverridden SupportsRowLimit should stay false")
	}
}

func TestOverlayIntOverride(t *testing.T) {
	o := NewOverlay(stubCaps{}, map[string]string{"MaxInCriteriaSize": "25"})

	if got := o.MaxInCriteriaSize(); got != 25 {
		t.Errorf("MaxInCriteriaSize = %d, want 25", got)
	}
	if got := o.MaxFromGroups(); got != -1 {
		t.Errorf("MaxFromGroups = %d, want the unlimited base value", got)
	}
}

func TestOverlayUnparseableFallsThrough(t *testing.T) {
	o := NewOverlay(stubCaps{}, map[string]string{
		"SupportsOrderBy":   "not-a-bool",
		"MaxInCriteriaSize": "lots",
	})

	if !o.SupportsOrderBy() {
		t.Error("unparseable bool should fall through to base")
	}
	if got := o.MaxInCriteriaSize(); got != 500 {
		t.Errorf("unparseable int should fall through, got %d", got)
	}
}

func TestOverlayNeverOverridesFunctions(t *testing.T) {
	o := NewOverlay(stubCaps{}, map[string]string{"SupportsFunction": "true"})

	if !o.SupportsFunction("upper") {
		t.Error("function support should delegate")
	}
	if o.SupportsFunction("lower") {
		t.Error("SupportsFunction takes arguments and must never be overridden")
	}
}

func TestOverlaySatisfiesCapabilities(t *testing.T) {
	var _ domain.Capabilities = NewOverlay(stubCaps{}, nil)
}
