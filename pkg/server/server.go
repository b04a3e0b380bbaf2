package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"skypath/pkg/config"
	"skypath/pkg/logger"
	"skypath/pkg/metrics"
	"skypath/pkg/telemetry"
)

// Server - HTTP API сервиса с h2c, gRPC health сервером и сервером метрик
type Server struct {
	cfg         *config.Config
	serviceName string

	http    *http.Server
	grpc    *grpc.Server
	health  *health.Server
	metrics *metrics.MetricsServer

	mu      sync.Mutex
	closers []namedCloser
}

type namedCloser struct {
	name string
	fn   func(context.Context) error
}

// New создаёт сервер для handler. HTTP/2 без TLS обслуживается через h2c.
func New(cfg *config.Config, handler http.Handler) *Server {
	h := handler
	if cfg.HTTP.MaxBodyBytes > 0 {
		h = limitBody(h, cfg.HTTP.MaxBodyBytes)
	}

	s := &Server{
		cfg:         cfg,
		serviceName: cfg.App.Name,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           h2c.NewHandler(h, &http2.Server{}),
			ReadTimeout:       cfg.HTTP.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.HTTP.WriteTimeout,
		},
		health: health.NewServer(),
	}

	if cfg.GRPC.Enabled {
		s.grpc = grpc.NewServer(grpc.UnaryInterceptor(telemetry.UnaryServerInterceptor()))
		grpc_health_v1.RegisterHealthServer(s.grpc, s.health)
		if cfg.IsDevelopment() {
			reflection.Register(s.grpc)
			logger.Log.Debug("gRPC reflection enabled")
		}
	}

	if cfg.Metrics.Enabled {
		s.metrics = metrics.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	return s
}

// OnShutdown регистрирует ресурс, закрываемый при остановке (в обратном порядке)
func (s *Server) OnShutdown(name string, fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, namedCloser{name: name, fn: fn})
}

// Handler возвращает корневой HTTP handler
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// SetServing переключает статус gRPC health
func (s *Server) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.serviceName, status)
}

// Run слушает порт HTTP и блокирует до SIGINT/SIGTERM или отмены ctx
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lc := net.ListenConfig{}
	lis, err := lc.Listen(ctx, "tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return s.Serve(ctx, lis)
}

// Serve обслуживает lis до отмены ctx, затем выполняет graceful shutdown
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 3)

	go func() {
		logger.Log.Info("Starting HTTP server",
			"service", s.serviceName,
			"addr", lis.Addr().String(),
			"environment", s.cfg.App.Environment,
			"version", s.cfg.App.Version,
		)
		if err := s.http.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.grpc != nil {
		lc := net.ListenConfig{}
		glis, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.cfg.GRPC.Port))
		if err != nil {
			_ = s.http.Close() //nolint:errcheck // already failing
			return fmt.Errorf("failed to listen grpc: %w", err)
		}
		go func() {
			logger.Log.Info("Starting gRPC health server", "port", s.cfg.GRPC.Port)
			if err := s.grpc.Serve(glis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	if s.metrics != nil {
		go func() {
			logger.Log.Info("Starting metrics server",
				"port", s.cfg.Metrics.Port,
				"path", s.cfg.Metrics.Path,
			)
			if err := s.metrics.Start(); err != nil {
				logger.Log.Error("Metrics server failed", "error", err)
			}
		}()
	}

	metrics.Get().SetServiceInfo(s.cfg.App.Version, s.cfg.App.Environment)
	s.SetServing(true)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Log.Info("Shutdown requested", "reason", context.Cause(ctx))
	case runErr = <-errCh:
		logger.Log.Error("Server failed", "error", runErr)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		logger.Log.Warn("Shutdown finished with errors", "error", err)
	}
	return runErr
}

// Shutdown останавливает серверы и закрывает зарегистрированные ресурсы
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.SetServing(false)

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}

	if s.grpc != nil {
		done := make(chan struct{})
		go func() {
			s.grpc.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Log.Warn("Forcing gRPC server stop")
			s.grpc.Stop()
		}
	}

	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}

	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.fn(ctx); err != nil {
			logger.Log.Warn("Failed to close resource", "resource", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}

	logger.Log.Info("Server stopped", "service", s.serviceName)
	return errors.Join(errs...)
}

func limitBody(next http.Handler, limit int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
