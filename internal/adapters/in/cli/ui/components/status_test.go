package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		state string
		want  Status
	}{
		{"ok", StatusSuccess},
		{"RUNNING", StatusSuccess},
		{"ready", StatusSuccess},
		{"failed", StatusError},
		{"down", StatusError},
		{"backoff", StatusWarning},
		{"exited", StatusWarning},
		{"starting", StatusPending},
		{"backend_starting", StatusPending},
		{"stopped", StatusInfo},
		{"", StatusInfo},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.state))
		})
	}
}

func TestStateBadge_KeepsLabel(t *testing.T) {
	assert.Contains(t, stripANSI(StateBadge("ready")), "ready")
}
