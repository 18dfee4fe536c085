// Package facility holds the process-wide collaborators every worker and
// session needs: a single initialised-once value injected at construction
// rather than static mutable globals, standing in for the automation
// system's ThisFacility singleton.
package facility

import (
	"log/slog"

	"github.com/cqc-go/webcore/pkg/config"
	"github.com/cqc-go/webcore/pkg/connqueue"
	"github.com/cqc-go/webcore/pkg/imgrepo"
	"github.com/cqc-go/webcore/pkg/metrics"
	"github.com/cqc-go/webcore/pkg/polling"
	"github.com/cqc-go/webcore/pkg/renderengine"
	"github.com/cqc-go/webcore/pkg/security"
	"github.com/cqc-go/webcore/pkg/tracing"
	"github.com/cqc-go/webcore/pkg/wsession"
)

// Facility is the single initialised-once collaborator bundle every
// worker and session is constructed with. It owns no per-connection state;
// it only hands out references to process-wide collaborators.
type Facility struct {
	ServerConfig config.ServerConfig
	SessionConfig config.SessionConfig

	Queue *connqueue.Queue

	Polling polling.Service
	Images imgrepo.Repository
	Security security.Service
	Engine renderengine.Engine
	Sessions *wsession.Pool
	Metrics *metrics.Metrics
	Tracer *tracing.Tracer

	Log *slog.Logger
}

// Options bundles the constructed collaborators New assembles into a
// Facility. Only Log has a fallback (slog.Default); every other field left
// nil stays nil in the Facility.
type Options struct {
	ServerConfig config.ServerConfig
	SessionConfig config.SessionConfig

	Polling polling.Service
	Images imgrepo.Repository
	Security security.Service
	Engine renderengine.Engine
	Metrics *metrics.Metrics
	Tracer *tracing.Tracer
	Log *slog.Logger
}

// New assembles the process-wide Facility once at startup.
func New(opts Options) *Facility {
	log:= opts.Log
	if log == nil {
		log = slog.Default()
	}

	f:= &Facility{
		ServerConfig: opts.ServerConfig,
		SessionConfig: opts.SessionConfig,
		Queue: connqueue.New(opts.ServerConfig.ConnQueueCapacity),
		Polling: opts.Polling,
		Images: opts.Images,
		Security: opts.Security,
		Engine: opts.Engine,
		Sessions: wsession.NewPool(),
		Metrics: opts.Metrics,
		Tracer: opts.Tracer,
		Log: log.With("component", "facility"),
	}
	return f
}

// Start brings up collaborators that need an explicit start call (the
// rendering engine's headless process), using Polling as its data source.
func (f *Facility) Start()error {
	if f.Engine == nil {
		return nil
	}
	return f.Engine.Start(f.Polling)
}

// Stop tears down collaborators that need an explicit stop call.
func (f *Facility) Stop(){
	if f.Engine != nil {
		f.Engine.Stop()
	}
}
