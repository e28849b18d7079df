package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
	"github.com/kha997/zenamanagephp-sub030/internal/config"
	accesslog "github.com/kha997/zenamanagephp-sub030/internal/logger/adapter/fiber"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler/assignment"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler/audit"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler/matrix"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler/permission"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler/role"
	authmiddleware "github.com/kha997/zenamanagephp-sub030/internal/web/middleware/auth"
)

const (
	// CheckAliveURI answers 200 while the service accepts traffic and 503 during shutdown.
	CheckAliveURI = "/checkalive"
	// MetricsURI exposes the prometheus registry.
	MetricsURI = "/metrics"

	// multipart framing around an uploaded matrix
	bodyLimitSlack = 64 << 10
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.shutdown()
}

func (s *Service) shutdown() {
	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether the service accepts traffic.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

// New creates the web service serving the RBAC API below handler.APIPath.
func New(cfg *config.Config, svc *rbac.Service) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if svc == nil {
		panic("rbac service cannot be nil")
	}

	maxImport := cfg.RBAC.MaxImportBytes
	if maxImport <= 0 {
		maxImport = svc.MaxImportBytes()
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			BodyLimit:      max(fiber.DefaultBodyLimit, maxImport+bodyLimitSlack),
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(accesslog.New(accesslog.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAliveURI,
		Locals:        []string{auth.LocalUserID, auth.LocalTenantID},
	}))

	service := &Service{
		cfg: cfg,
		App: app,
	}
	service.alive.Store(true)

	app.Get(CheckAliveURI, service.checkAlive)
	app.Get(MetricsURI, adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(handler.APIPath, authmiddleware.Middleware)

	// each handler registers its own routes with permission checks
	for _, h := range []handler.Service{
		&permission.Handler,
		&role.Handler,
		&assignment.Handler,
		&audit.Handler,
		&matrix.Handler,
	} {
		h.Init(api, cfg, svc)
	}

	return service
}
