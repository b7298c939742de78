package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/internal/pipeline"
	"github.com/sells-group/property-report/internal/resilience"
	"github.com/sells-group/property-report/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the property report API for the report view",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close()

		ctrl := pipeline.NewController(env.Options)
		defer ctrl.Close()

		router := buildRouter(ctx, ctrl, env.Store, env.Breakers, cfg.Server.AllowedOrigins)
		return startServer(ctx, router, resolvePort(servePort, cfg.Server.Port))
	},
}

// reportRequest is the body of POST /api/report.
type reportRequest struct {
	Address       string              `json:"address"`
	Questionnaire model.Questionnaire `json:"questionnaire"`
}

// buildRouter wires the report API. ctx is the server lifetime and bounds
// every submitted session. st and breakers may be nil.
func buildRouter(ctx context.Context, ctrl *pipeline.Controller, st store.Store, breakers *resilience.Breakers, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "ok"}
		if breakers != nil {
			states := make(map[string]string)
			for name, s := range breakers.States() {
				states[name] = s.String()
			}
			resp["breakers"] = states
		}
		writeJSONStatus(w, http.StatusOK, resp)
	})

	r.Route("/api/report", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req reportRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			address := strings.TrimSpace(req.Address)
			if address == "" {
				writeError(w, http.StatusBadRequest, "address is required")
				return
			}

			s := ctrl.Submit(ctx, pipeline.Request{
				Address:       address,
				Questionnaire: req.Questionnaire,
				Cached:        cachedIdentity(r.Context(), st, address),
			})
			zap.L().Info("report submitted", zap.String("session_id", s.ID), zap.String("address", address))

			writeJSONStatus(w, http.StatusAccepted, map[string]string{
				"status":     "accepted",
				"session_id": s.ID,
			})
		})

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			s := ctrl.Current()
			if s == nil {
				writeError(w, http.StatusNotFound, "no active report")
				return
			}
			writeJSONStatus(w, http.StatusOK, s.View())
		})

		r.Get("/markers", func(w http.ResponseWriter, r *http.Request) {
			s := ctrl.Current()
			if s == nil {
				writeError(w, http.StatusNotFound, "no active report")
				return
			}
			fc := pipeline.Markers(s.View().Result)
			w.Header().Set("Content-Type", "application/geo+json")
			if err := json.NewEncoder(w).Encode(fc); err != nil {
				zap.L().Warn("encode markers", zap.Error(err))
			}
		})

		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			s := ctrl.Current()
			if s == nil {
				writeError(w, http.StatusNotFound, "no active report")
				return
			}
			streamViews(r.Context(), w, s)
		})
	})

	return r
}

// streamViews writes each view of s as a server-sent event until the view
// settles, the session closes or the client goes away.
func streamViews(ctx context.Context, w http.ResponseWriter, s *pipeline.Session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	views, cancel := s.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-views:
			if !ok {
				return
			}
			data, err := json.Marshal(v)
			if err != nil {
				zap.L().Warn("encode view", zap.Error(err))
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
			if v.Settled() {
				return
			}
		}
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSONStatus(w, status, map[string]string{"error": msg})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves handler on port until ctx is cancelled, then shuts
// down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
