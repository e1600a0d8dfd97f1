package security

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/babelpdf/babelpdf-api/internal/config"
)

func TestScannerDisabledByConfig(t *testing.T) {
	t.Parallel()

	s := NewScanner(config.ScannerConfig{Enabled: false}, slog.Default())
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Scan([]byte("anything")))
}

func TestScannerDisabledWhenDaemonUnreachable(t *testing.T) {
	t.Parallel()

	// Nothing listens on this port; the scanner must degrade to a no-op.
	s := NewScanner(config.ScannerConfig{
		Enabled:      true,
		ClamdAddress: "127.0.0.1:1",
	}, slog.Default())
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Scan([]byte("anything")))
}
