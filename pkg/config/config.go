// Package config holds the plain-struct configuration types shared across
// the listener, worker pool, and session cores, following the
// Default*Config/GetConfigWarnings shape used throughout this codebase's
// ambient plumbing.
package config

import (
	"fmt"
	"time"
)

// ServerConfig controls the listener and worker pool.
type ServerConfig struct {
	// PlainAddr and TLSAddr are the two bind addresses the listener opens.
	// Either may be empty to disable that listener.
	PlainAddr string
	TLSAddr string
	CertFile string
	KeyFile string

	// ConnQueueCapacity bounds the listener→worker hand-off queue.
	ConnQueueCapacity int

	// WorkerPoolFloor and WorkerPoolCap bound the worker pool; the listener
	// grows it on backlog up to the cap and the pool reclaims idle workers
	// back down to the floor.
	WorkerPoolFloor int
	WorkerPoolCap int

	// WorkerIdleGrace is how long a worker may sit idle before it is a
	// reclamation candidate.
	WorkerIdleGrace time.Duration

	// AcceptWait bounds how long the listener blocks per accept-loop
	// iteration before re-checking shutdown.
	AcceptWait time.Duration

	// ConnTakeWait bounds how long a worker blocks dequeuing a connection
	// before re-checking shutdown.
	ConnTakeWait time.Duration

	// SecureNamespacePrefix is the URL prefix under which Digest
	// authentication is enforced; role sub-prefixes
	// (Admin/Power/Normal) are resolved beneath it by pkg/authdigest.
	SecureNamespacePrefix string

	ServerHeader string
}

// DefaultServerConfig fills every field with the zero-value-means-default
// set used when a config file or flag leaves a field unset.
func DefaultServerConfig()ServerConfig {
	return ServerConfig{
		PlainAddr: ":8080",
		TLSAddr: "",
		ConnQueueCapacity: 64,
		WorkerPoolFloor: 4,
		WorkerPoolCap: 64,
		WorkerIdleGrace: 30 * time.Second,
		AcceptWait: 250 * time.Millisecond,
		ConnTakeWait: 250 * time.Millisecond,
		SecureNamespacePrefix: "/Secure",
		ServerHeader: "CQC Web Server",
	}
}

// Clone returns an independent copy.
func (c ServerConfig) Clone()ServerConfig {
	return c
}

// WithPlainAddr returns a copy with PlainAddr set, for chainable construction.
func (c ServerConfig) WithPlainAddr(addr string) ServerConfig {
	c.PlainAddr = addr
	return c
}

// WithTLS returns a copy with the TLS bind address and cert/key paths set.
func (c ServerConfig) WithTLS(addr, certFile, keyFile string) ServerConfig {
	c.TLSAddr = addr
	c.CertFile = certFile
	c.KeyFile = keyFile
	return c
}

// WithWorkerBounds returns a copy with the worker pool floor/cap set.
func (c ServerConfig) WithWorkerBounds(floor, cap int) ServerConfig {
	c.WorkerPoolFloor = floor
	c.WorkerPoolCap = cap
	return c
}

// IsSecure reports whether the TLS listener is configured.
func (c ServerConfig) IsSecure()bool {
	return c.TLSAddr != "" && c.CertFile != "" && c.KeyFile != ""
}

// GetConfigWarnings returns human-readable non-fatal issues with c;
// ValidateConfig promotes the first to an error.
func (c ServerConfig) GetConfigWarnings()[]string {
	var warnings []string
	if c.PlainAddr == "" && c.TLSAddr == "" {
		warnings = append(warnings, "no plain or TLS bind address configured; server will not listen")
	}
	if c.ConnQueueCapacity <= 0 {
		warnings = append(warnings, "connection queue capacity must be positive")
	}
	if c.WorkerPoolFloor <= 0 {
		warnings = append(warnings, "worker pool floor must be positive")
	}
	if c.WorkerPoolCap < c.WorkerPoolFloor {
		warnings = append(warnings, "worker pool cap is below its floor")
	}
	if c.TLSAddr != "" && (c.CertFile == "" || c.KeyFile == "") {
		warnings = append(warnings, "TLS bind address set without cert/key files")
	}
	if c.ConnTakeWait <= 0 || c.AcceptWait <= 0 {
		warnings = append(warnings, "accept/take wait bounds must be positive to observe shutdown promptly")
	}
	return warnings
}

// ValidateConfig returns an error built from the first warning, or nil.
func (c ServerConfig) ValidateConfig()error {
	if w:= c.GetConfigWarnings(); len(w) > 0 {
		return fmt.Errorf("config: %s", w[0])
	}
	return nil
}

// SessionConfig controls WebSocket session liveness, queue sizing, and
// polling cadence.
type SessionConfig struct {
	// EgressQueueCapScript and EgressQueueCapRIVA are the soft caps on the
	// per-session egress queue named here ("256 entries for script-language
	// sessions, 8192 for RIVA").
	EgressQueueCapScript int
	EgressQueueCapRIVA int

	// InactivityTimeout ends the session if nothing has arrived for this
	// long.
	InactivityTimeout time.Duration

	// PingInterval is how long since last-in before a ping is sent if no
	// pong is pending.
	PingInterval time.Duration

	// GracefulCloseWait bounds how long a locally-initiated close waits for
	// the peer's close frame before forcing End.
	GracefulCloseWait time.Duration

	// LoopWait bounds the session loop's multi-wait iteration.
	LoopWait time.Duration

	// FieldPollWarmup and FieldPollInterval set the field-subscription
	// polling cadence.
	FieldPollWarmup time.Duration
	FieldPollInterval time.Duration

	// MaxFragmentSize bounds an individual inbound fragment's payload.
	MaxFragmentSize int64

	// RIVABailoutJoinWait bounds how long the session waits for the
	// faux-GUI thread to join during teardown.
	RIVABailoutJoinWait time.Duration
}

// DefaultSessionConfig fills every field with its default value.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		EgressQueueCapScript: 256,
		EgressQueueCapRIVA: 8192,
		InactivityTimeout: 2 * time.Minute,
		PingInterval: 25 * time.Second,
		GracefulCloseWait: 10 * time.Second,
		LoopWait: 250 * time.Millisecond,
		FieldPollWarmup: 3 * time.Second,
		FieldPollInterval: 1 * time.Second,
		MaxFragmentSize: 64 << 20,
		RIVABailoutJoinWait: 8 * time.Second,
	}
}

// Clone returns an independent copy.
func (c SessionConfig) Clone()SessionConfig {
	return c
}

// WithEgressCaps returns a copy with both egress queue caps set.
func (c SessionConfig) WithEgressCaps(script, riva int) SessionConfig {
	c.EgressQueueCapScript = script
	c.EgressQueueCapRIVA = riva
	return c
}

// WithTimeouts returns a copy with the inactivity timeout and ping interval set.
func (c SessionConfig) WithTimeouts(inactivity, ping time.Duration) SessionConfig {
	c.InactivityTimeout = inactivity
	c.PingInterval = ping
	return c
}

// GetConfigWarnings returns human-readable non-fatal issues with c.
func (c SessionConfig) GetConfigWarnings()[]string {
	var warnings []string
	if c.EgressQueueCapScript <= 0 || c.EgressQueueCapRIVA <= 0 {
		warnings = append(warnings, "egress queue caps must be positive")
	}
	if c.PingInterval >= c.InactivityTimeout {
		warnings = append(warnings, "ping interval should be well below the inactivity timeout")
	}
	if c.LoopWait <= 0 {
		warnings = append(warnings, "loop wait must be positive to observe shutdown promptly")
	}
	if c.FieldPollInterval <= 0 {
		warnings = append(warnings, "field poll interval must be positive")
	}
	if c.MaxFragmentSize <= 0 {
		warnings = append(warnings, "max fragment size must be positive")
	}
	return warnings
}

// ValidateConfig returns an error built from the first warning, or nil.
func (c SessionConfig) ValidateConfig()error {
	if w:= c.GetConfigWarnings(); len(w) > 0 {
		return fmt.Errorf("config: %s", w[0])
	}
	return nil
}
