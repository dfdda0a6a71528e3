// Package caps layers deployment-time capability overrides over the
// capabilities a connector reports, and caches the resulting snapshots.
package caps

import (
	"strconv"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

// Overlay wraps a Capabilities value so that individual no-argument
// capability queries can be overridden by deployment properties without
// touching the connector. Property names match the method names
// ("SupportsOuterJoins", "MaxInCriteriaSize", ...); values are parsed to
// the method's return type. Unparseable or absent values fall through to
// the wrapped capabilities.
type Overlay struct {
	base  domain.Capabilities
	props map[string]string
}

// NewOverlay wraps base with the given override properties. A nil or empty
// property bag yields a pure pass-through.
func NewOverlay(base domain.Capabilities, props map[string]string) *Overlay {
	return &Overlay{base: base, props: props}
}

func (o *Overlay) boolOverride(name string, delegate func() bool) bool {
	if raw, ok := o.props[name]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return delegate()
}

func (o *Overlay) intOverride(name string, delegate func() int) int {
	if raw, ok := o.props[name]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return delegate()
}

func (o *Overlay) SupportsSelectDistinct() bool {
	return o.boolOverride("SupportsSelectDistinct", o.base.SupportsSelectDistinct)
}

func (o *Overlay) SupportsOuterJoins() bool {
	return o.boolOverride("SupportsOuterJoins", o.base.SupportsOuterJoins)
}

func (o *Overlay) SupportsOrderBy() bool {
	return o.boolOverride("SupportsOrderBy", o.base.SupportsOrderBy)
}

func (o *Overlay) SupportsAggregates() bool {
	return o.boolOverride("SupportsAggregates", o.base.SupportsAggregates)
}

func (o *Overlay) SupportsInCriteria() bool {
	return o.boolOverride("SupportsInCriteria", o.base.SupportsInCriteria)
}

func (o *Overlay) SupportsLikeCriteria() bool {
	return o.boolOverride("SupportsLikeCriteria", o.base.SupportsLikeCriteria)
}

func (o *Overlay) SupportsRowLimit() bool {
	return o.boolOverride("SupportsRowLimit", o.base.SupportsRowLimit)
}

func (o *Overlay) SupportsRowOffset() bool {
	return o.boolOverride("SupportsRowOffset", o.base.SupportsRowOffset)
}

func (o *Overlay) SupportsBatchedUpdates() bool {
	return o.boolOverride("SupportsBatchedUpdates", o.base.SupportsBatchedUpdates)
}

func (o *Overlay) SupportsXATransactions() bool {
	return o.boolOverride("SupportsXATransactions", o.base.SupportsXATransactions)
}

func (o *Overlay) MaxInCriteriaSize() int {
	return o.intOverride("MaxInCriteriaSize", o.base.MaxInCriteriaSize)
}

func (o *Overlay) MaxFromGroups() int {
	return o.intOverride("MaxFromGroups", o.base.MaxFromGroups)
}

// SupportsFunction takes an argument, so it is never overridden; the call
// always delegates.
func (o *Overlay) SupportsFunction(name string) bool {
	return o.base.SupportsFunction(name)
}
