// Package pooling decorates a connector with per-identity pooling of
// physical connections.
package pooling

import "github.com/kasuganosora/fedsql/pkg/connector/domain"

// Decide resolves whether pooling is enabled for a binding. The explicit
// deployment property wins when set; otherwise the connector's declared
// preference wins; when neither is present pooling is disabled.
//
// The fallback order matters and is pinned by tests: a connector with no
// declared preference and no deployment property runs unpooled.
func Decide(property *bool, c domain.Connector) bool {
	if property != nil {
		return *property
	}
	if pref, declared := domain.PoolingPreference(c); declared {
		return pref
	}
	return false
}
