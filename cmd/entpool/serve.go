package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/entpool/internal/hostsim"
	"github.com/l1jgo/entpool/internal/scripting"
)

// maxUpload bounds POST /verify bodies: three chunks at their ceilings.
const maxUpload = 48 << 20

// server exposes metrics and a verify endpoint. Each verify runs in a fresh
// session; the live session is only read for /stats.
type server struct {
	a *app

	mu   sync.Mutex
	live *hostsim.Host
}

func (a *app) serveCmd() *cobra.Command {
	var script string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pool metrics and a save verification endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.newHost()
			if err != nil {
				return err
			}
			if script != "" {
				e := scripting.NewEngine(h, a.log)
				err := e.RunFile(script)
				e.Close()
				if err != nil {
					return err
				}
			}
			srv := &server{a: a, live: h}
			return srv.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "scenario to populate the live session with")
	return cmd
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.a.reg, promhttp.HandlerOpts{}))
	r.Get("/stats", s.handleStats)
	r.Post("/verify", s.handleVerify)
	return r
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	st := s.live.S.Stats()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, st)
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	h, err := s.a.newHost()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer h.S.End()

	rep, err := verifySave(h, data, loadAll, s.a.log)
	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{
		Addr:              s.a.cfg.Metrics.Listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	s.a.log.Info("監聽中", zap.String("addr", hs.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.a.log.Info("收到關閉信號")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
