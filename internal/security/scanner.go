// Package security provides optional malware scanning of uploaded documents.
package security

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	clamd "github.com/dutchcoders/go-clamd"

	"github.com/babelpdf/babelpdf-api/internal/config"
)

// ErrInfected is returned when ClamAV flags an upload.
var ErrInfected = errors.New("file failed virus scan")

// Scanner checks uploaded content against a ClamAV daemon. It degrades to a
// no-op when scanning is disabled or the daemon is unreachable, so the
// upload path never depends on ClamAV being installed.
type Scanner struct {
	enabled bool
	client  *clamd.Clamd
}

// NewScanner creates a scanner from configuration. When the daemon cannot be
// reached the scanner starts disabled and logs a warning instead of failing
// server startup.
func NewScanner(cfg config.ScannerConfig, log *slog.Logger) *Scanner {
	if !cfg.Enabled {
		return &Scanner{}
	}

	address := cfg.ClamdAddress
	if address == "" {
		address = "localhost:3310"
	}

	client := clamd.NewClamd("tcp://" + address)
	if err := client.Ping(); err != nil {
		log.Warn("clamd unreachable, virus scanning disabled",
			"address", address,
			"error", err)
		return &Scanner{}
	}

	log.Info("virus scanning enabled", "address", address)
	return &Scanner{enabled: true, client: client}
}

// Enabled reports whether uploads are actually scanned.
func (s *Scanner) Enabled() bool {
	return s.enabled
}

// Scan checks the given content. Returns ErrInfected when a threat is found
// and nil when the content is clean or scanning is disabled.
func (s *Scanner) Scan(data []byte) error {
	if !s.enabled {
		return nil
	}

	results, err := s.client.ScanStream(bytes.NewReader(data), make(chan bool))
	if err != nil {
		return fmt.Errorf("failed to scan upload: %w", err)
	}
	for result := range results {
		if result.Status == clamd.RES_FOUND {
			return fmt.Errorf("%w: %s", ErrInfected, result.Description)
		}
	}
	return nil
}
