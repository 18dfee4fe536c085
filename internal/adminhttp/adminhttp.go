// Package adminhttp is the auxiliary metrics/health server, separate from
// the core connection/worker/dispatch engine so its own ordinary net/http
// listener never competes with the hand-rolled HTTP/1.x path the worker
// pool implements.
package adminhttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cqc-go/webcore/pkg/connqueue"
	"github.com/cqc-go/webcore/pkg/listener"
	"github.com/cqc-go/webcore/pkg/wsession"
)

// Status reports a point-in-time snapshot of server load for /statusz.
type Status struct {
	QueueLen int `json:"queueLen"`
	WorkerPool int `json:"workerPoolSize"`
	ActiveSessions int `json:"activeSessions"`
}

// Server is the admin HTTP surface: health, Prometheus scrape, and a small
// JSON status endpoint.
type Server struct {
	router *gin.Engine
	queue *connqueue.Queue
	pool *listener.Pool
	sessions *wsession.Pool
}

// New builds the admin router. registry may be nil to use the default
// Prometheus registry.
func New(queue *connqueue.Queue, pool *listener.Pool, sessions *wsession.Pool, registry *prometheus.Registry) *Server {
	s:= &Server{queue: queue, pool: pool, sessions: sessions}

	gin.SetMode(gin.ReleaseMode)
	r:= gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/statusz", s.handleStatusz)

	var metricsHandler http.Handler
	if registry != nil {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	} else {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	s.router = r
	return s
}

// ServeHTTP implements http.Handler, so Server can be passed straight to
// http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatusz(c *gin.Context) {
	status:= Status{}
	if s.queue != nil {
		status.QueueLen = s.queue.Len()
	}
	if s.pool != nil {
		status.WorkerPool = s.pool.Size()
	}
	if s.sessions != nil {
		status.ActiveSessions = s.sessions.ActiveCount()
	}

	c.JSON(http.StatusOK, status)
}
