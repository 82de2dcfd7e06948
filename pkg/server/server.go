package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/config"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/logging"
)

const shutdownTimeout = 10 * time.Second

// Server is the arcadesyncd distribution server.
type Server struct {
	cfg     *config.ServerConfig
	repo    *Repository
	flags   *FlagStore
	metrics *Metrics
	handler *Handler

	http        *http.Server
	metricsHTTP *http.Server
}

// New builds a server over fs and creates the updates folder if missing.
func New(cfg *config.ServerConfig, fs afero.Fs) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo := NewRepository(fs, cfg.UpdatesFolder, cfg.PackageExt, cfg.ConfigFilePath())
	created, err := repo.EnsureUpdatesDir()
	if err != nil {
		return nil, err
	}
	if created {
		logging.Get("server").Info("created updates folder", "path", cfg.UpdatesFolder)
	}

	s := &Server{
		cfg:   cfg,
		repo:  repo,
		flags: NewFlagStore(fs, cfg.FlagFilePath()),
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		s.metrics = NewMetrics(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		s.metricsHTTP = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	}

	s.handler = NewHandler(repo, s.flags, s.metrics)
	s.http = &http.Server{Addr: cfg.Addr(), Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}

	return s, nil
}

// Handler returns the HTTP handler serving the distribution endpoints.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Repository returns the package repository.
func (s *Server) Repository() *Repository {
	return s.repo
}

// Serve listens on the configured address and blocks until ctx is done or a
// listener fails.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.http.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done or a listener fails.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	log := logging.Get("server")
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("serving updates", "addr", ln.Addr().String(), "folder", s.cfg.UpdatesFolder, "config", s.cfg.ConfigFilePath())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.metricsHTTP != nil {
		g.Go(func() error {
			log.Info("serving metrics", "addr", s.metricsHTTP.Addr)
			if err := s.metricsHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}

	if s.cfg.Watch {
		w, err := NewWatcher(s.repo, s.metrics)
		if err != nil {
			log.Warn("package watcher unavailable", "error", err)
		} else {
			g.Go(func() error {
				defer w.Close()
				w.Run(ctx)
				return nil
			})
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logging.Get("server").Info("shutting down")
	err := s.http.Shutdown(ctx)
	if s.metricsHTTP != nil {
		err = errors.Join(err, s.metricsHTTP.Shutdown(ctx))
	}
	return err
}
