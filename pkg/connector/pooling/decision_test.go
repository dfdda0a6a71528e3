package pooling

import (
	"context"
	"testing"

	"github.com/kasuganosora/fedsql/pkg/connector/domain"
)

type plainConnector struct{}

func (plainConnector) Start(env *domain.Environment) error { return nil }
func (plainConnector) Stop()                               {}
func (plainConnector) GetConnection(ctx context.Context, workCtx *domain.WorkContext) (domain.Connection, error) {
	return nil, nil
}
func (plainConnector) GetCapabilities() (domain.Capabilities, error) { return nil, nil }

type preferringConnector struct {
	plainConnector
	pref bool
}

func (c preferringConnector) SupportsPooling() bool { return c.pref }

func boolPtr(b bool) *bool { return &b }

// The fallback order is part of the deployment contract: explicit property,
// then declared preference, then disabled.
func TestDecideFallbackOrder(t *testing.T) {
	tests := []struct {
		name     string
		property *bool
		conn     domain.Connector
		want     bool
	}{
		{"property true wins over declared false", boolPtr(true), preferringConnector{pref: false}, true},
		{"property false wins over declared true", boolPtr(false), preferringConnector{pref: true}, false},
		{"declared true used when no property", nil, preferringConnector{pref: true}, true},
		{"declared false used when no property", nil, preferringConnector{pref: false}, false},
		{"no property, no declaration: disabled", nil, plainConnector{}, false},
		{"property true with no declaration", boolPtr(true), plainConnector{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.property, tt.conn); got != tt.want {
				t.Errorf("Decide() = %t, want %t", got, tt.want)
			}
		})
	}
}
