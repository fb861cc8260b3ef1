// Package ids mints the run/session correlation ID tagged onto a single CLI
// invocation's `gen-state` snapshot output (its run_id field). Step-proof
// output and log lines do not carry it.
package ids

import "github.com/google/uuid"

// NewRunID returns a fresh UUIDv4 string identifying one emulator run.
func NewRunID() string {
	return uuid.NewString()
}
