package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/cqc-go/webcore/internal/adminhttp"
	"github.com/cqc-go/webcore/internal/facility"
	"github.com/cqc-go/webcore/pkg/authdigest"
	"github.com/cqc-go/webcore/pkg/config"
	"github.com/cqc-go/webcore/pkg/handlers"
	"github.com/cqc-go/webcore/pkg/httpmsg"
	"github.com/cqc-go/webcore/pkg/imgrepo"
	"github.com/cqc-go/webcore/pkg/listener"
	"github.com/cqc-go/webcore/pkg/metrics"
	"github.com/cqc-go/webcore/pkg/polling"
	"github.com/cqc-go/webcore/pkg/renderengine"
	"github.com/cqc-go/webcore/pkg/riva"
	"github.com/cqc-go/webcore/pkg/router"
	"github.com/cqc-go/webcore/pkg/scriptsession"
	"github.com/cqc-go/webcore/pkg/security"
	"github.com/cqc-go/webcore/pkg/tracing"
	"github.com/cqc-go/webcore/pkg/worker"
	"github.com/cqc-go/webcore/pkg/wsession"
)

type serveFlags struct {
	plainAddr string
	tlsAddr string
	certFile string
	keyFile string
	adminAddr string
	connQueueCap int
	workerFloor int
	workerCap int
	securePrefix string
	contentRoot string
	redisAddr string
}

func newServeCmd()*cobra.Command {
	f:= &serveFlags{}
	cmd:= &cobra.Command{
		Use: "serve",
		Short: "Run the web server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), f)
		},
	}

	flags:= cmd.Flags()
	flags.StringVar(&f.plainAddr, "plain-addr", ":8080", "plain HTTP bind address, empty to disable")
	flags.StringVar(&f.tlsAddr, "tls-addr", "", "TLS bind address, empty to disable")
	flags.StringVar(&f.certFile, "cert-file", "", "TLS certificate path")
	flags.StringVar(&f.keyFile, "key-file", "", "TLS private key path")
	flags.StringVar(&f.adminAddr, "admin-addr", ":9090", "admin/metrics HTTP bind address")
	flags.IntVar(&f.connQueueCap, "conn-queue-cap", 64, "listener-to-worker hand-off queue capacity")
	flags.IntVar(&f.workerFloor, "worker-floor", 4, "minimum worker pool size")
	flags.IntVar(&f.workerCap, "worker-cap", 64, "maximum worker pool size")
	flags.StringVar(&f.securePrefix, "secure-prefix", "/Secure", "URL prefix requiring Digest auth")
	flags.StringVar(&f.contentRoot, "content-root", ".", "local filesystem root for the file/image handlers")
	flags.StringVar(&f.redisAddr, "redis-addr", "", "Redis address for the polling fan-out service, empty for in-memory")

	return cmd
}

func runServe(ctx context.Context, f *serveFlags) error {
	log:= slog.Default()

	serverCfg:= config.DefaultServerConfig().
		WithPlainAddr(f.plainAddr).
		WithWorkerBounds(f.workerFloor, f.workerCap)
	serverCfg.ConnQueueCapacity = f.connQueueCap
	serverCfg.SecureNamespacePrefix = f.securePrefix
	if f.tlsAddr != "" {
		serverCfg = serverCfg.WithTLS(f.tlsAddr, f.certFile, f.keyFile)
	}
	if w:= serverCfg.GetConfigWarnings(); len(w) > 0 {
		log.Warn("server config warnings", "warnings", w)
	}

	sessionCfg:= config.DefaultSessionConfig()

	images:= imgrepo.NewLocalRepository(f.contentRoot)
	sec:= security.NewFakeService([]byte("cqcwebsrv-dev-signing-key"), map[string]struct {
		Password string
		Role authdigest.Role
	}{
		"admin": {Password: "admin", Role: authdigest.RolePowerUser},
	})

	pollSvc:= buildPollingService(f.redisAddr, log)
	engine:= renderengine.NewFakeEngine()
	mtr:= metrics.New(metrics.WithNamespace("cqcwebsrv"))
	tracer:= tracing.New(log)

	fac:= facility.New(facility.Options{
		ServerConfig: serverCfg,
		SessionConfig: sessionCfg,
		Polling: pollSvc,
		Images: images,
		Security: sec,
		Engine: engine,
		Metrics: mtr,
		Tracer: tracer,
		Log: log,
	})
	if err:= fac.Start(); err != nil {
		return fmt.Errorf("starting facility: %w", err)
	}
	defer fac.Stop()

	rtr:= buildRouter(fac)
	upgrade:= buildUpgradeHandoff(fac, sec)

	shutdown:= make(chan struct{})
	spawn:= func(shutdown <-chan struct{}) {
		workerCfg:= worker.Config{
			Handlers: router.NewWorkerHandlers(rtr),
			ReadRequest: readHTTPRequest,
			SecureNamespacePrefix: fac.ServerConfig.SecureNamespacePrefix,
			PasswordLookup: security.AdaptPasswordLookup(fac.Security, security.Token{}),
			WebsockPrefix: "/WebSock",
			Upgrade: upgrade,
			ServerHeader: fac.ServerConfig.ServerHeader,
			Logger: log,
		}
		w:= worker.New(workerCfg, fac.Queue)
		w.Run(shutdown, fac.ServerConfig.ConnTakeWait)
	}

	for i:= 0; i < fac.ServerConfig.WorkerPoolFloor; i++ {
		go spawn(shutdown)
	}

	var tlsConfig *tls.Config
	if fac.ServerConfig.IsSecure() {
		cert, err:= tls.LoadX509KeyPair(fac.ServerConfig.CertFile, fac.ServerConfig.KeyFile)
		if err != nil {
			return fmt.Errorf("loading TLS keypair: %w", err)
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	ln:= listener.New(listener.Config{
		PlainAddr: fac.ServerConfig.PlainAddr,
		TLSAddr: fac.ServerConfig.TLSAddr,
		TLSConfig: tlsConfig,
		Queue: fac.Queue,
		SpawnWorker: spawn,
		WorkerPoolFloor: fac.ServerConfig.WorkerPoolFloor,
		WorkerPoolCap: fac.ServerConfig.WorkerPoolCap,
		WorkerIdleGrace: fac.ServerConfig.WorkerIdleGrace,
		AcceptWait: fac.ServerConfig.AcceptWait,
		Logger: log,
	})

	admin:= adminhttp.New(fac.Queue, ln.Pool(), fac.Sessions, nil)
	adminSrv:= &http.Server{Addr: f.adminAddr, Handler: admin}
	go func() {
		if err:= adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin server failed", "err", err)
		}
	}()

	listenerErr:= make(chan error, 1)
	go func() { listenerErr <- ln.Run(shutdown) }()

	sigCtx, stop:= signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info("shutdown requested")
	case err:= <-listenerErr:
		if err != nil {
			log.Error("listener failed", "err", err)
		}
	}

	close(shutdown)
	shutdownCtx, cancel:= context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	adminSrv.Shutdown(shutdownCtx)

	return nil
}

func buildPollingService(redisAddr string, log *slog.Logger) polling.Service {
	if redisAddr == "" {
		return polling.NewMemoryService(nil)
	}
	client:= redis.NewClient(&redis.Options{Addr: redisAddr})
	log.Info("using redis-backed polling service", "addr", redisAddr)
	return polling.NewRedisService(client, "cqcwebsrv:poll:")
}

// buildRouter registers the four URL-prefix handlers named here. The router
// picks the longest matching prefix, so the catch-all file handler at "/"
// never shadows a more specific route.
func buildRouter(fac *facility.Facility) *router.Router {
	r:= router.New()

	echo:= handlers.NewEchoHandler(handlers.EchoRouteTable{})
	r.Register("/Echo", func() router.Handler { return echo() })

	cml:= handlers.NewCMLHandler(unavailableScriptRunner{})
	r.Register("/CML", func() router.Handler { return cml() })

	image:= handlers.NewImageHandler(fac.Images)
	r.Register("/Images", func() router.Handler { return image() })

	file:= handlers.NewFileHandler(fac.Images, nil)
	r.Register("/", func() router.Handler { return file() })

	return r
}

type unavailableScriptRunner struct{}

// Run implements handlers.ScriptRunner. The script engine itself is an
// external collaborator; this stand-in reports every script as
// unavailable rather than hand-rolling a scripting runtime.
func (unavailableScriptRunner) Run(path string, params httpmsg.Params) (string, []byte, error) {
	return "", nil, fmt.Errorf("no script engine configured for %s", path)
}

func buildUpgradeHandoff(fac *facility.Facility, auth riva.Authenticator) worker.UpgradeHandoff {
	return func(conn net.Conn, req *httpmsg.Request, role authdigest.Role, user string) {
		peerQuery:= req.Query

		switch {
		case strings.HasPrefix(strings.ToLower(req.Path), "/riva"):
			v:= riva.New(riva.Config{
				Engine: fac.Engine,
				Auth: auth,
				VirtualSize: renderengine.Size{X: 1024, Y: 768},
				Log: fac.Log,
			})
			s:= wsession.New(conn, fac.SessionConfig, v, fac.Polling, fac.SessionConfig.EgressQueueCapRIVA, peerQuery, fac.Log)
			fac.Sessions.Track("riva", s)
			s.Run()
			fac.Sessions.Discard(s)

		default:
			classPath, ok:= scriptsession.ResolveClassPath(req.Path)
			if !ok {
				conn.Close()
				return
			}
			v:= scriptsession.New(classPath, scriptLoader, fac.Security, fac.Log)
			s:= wsession.New(conn, fac.SessionConfig, v, fac.Polling, fac.SessionConfig.EgressQueueCapScript, peerQuery, fac.Log)
			fac.Sessions.Track("script", s)
			s.Run()
			fac.Sessions.Discard(s)
		}
	}
}

// scriptLoader is the hosted script engine this core treats as an external
// collaborator: it has no classes of its own to load.
func scriptLoader(classPath string) (scriptsession.Handler, error) {
	return nil, fmt.Errorf("no script engine configured for %s", classPath)
}
