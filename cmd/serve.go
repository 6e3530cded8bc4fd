package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maplanning/lead-scout/internal/digest"
	"github.com/maplanning/lead-scout/internal/export"
	"github.com/maplanning/lead-scout/internal/model"
	"github.com/maplanning/lead-scout/internal/monitoring"
	"github.com/maplanning/lead-scout/internal/pipeline"
	"github.com/maplanning/lead-scout/internal/store"
)

var servePort int

var errBadParam = eris.New("invalid query parameter")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Alerter != nil && cfg.Monitoring.BacklogThreshold > 0 {
			checker := monitoring.NewChecker(monitoring.NewCollector(env.Store), env.Alerter, cfg.Monitoring)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env, cfg.Server.AllowedOrigins),
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// leadServer holds the handlers' dependencies.
type leadServer struct {
	env *pipelineEnv
	now func() time.Time
}

// buildRouter wires the API routes. Runs execute synchronously; the Engine
// serializes overlapping runs.
func buildRouter(env *pipelineEnv, origins []string) http.Handler {
	s := &leadServer{env: env, now: time.Now}

	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/sources", s.sources)
	r.Post("/runs", s.run)
	r.Route("/leads", func(r chi.Router) {
		r.Get("/", s.listLeads)
		r.Get("/export", s.exportLeads)
		r.Post("/status", s.setStatus)
	})
	r.Get("/digest", s.digest)
	return r
}

func (s *leadServer) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sourceView struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
	Note    string `json:"note,omitempty"`
}

func (s *leadServer) sources(w http.ResponseWriter, _ *http.Request) {
	descs := s.env.Registry.Descriptors()
	out := make([]sourceView, 0, len(descs))
	for _, d := range descs {
		out = append(out, sourceView{
			Name:    d.Name,
			Title:   d.DisplayName(),
			Kind:    string(d.Kind),
			Enabled: d.Enabled,
			Note:    d.Note,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// run decodes an optional Request body. Omitted fields take config defaults.
func (s *leadServer) run(w http.ResponseWriter, r *http.Request) {
	req := pipeline.Request{
		LookbackDays: cfg.Pipeline.LookbackDays,
		MinScore:     cfg.Pipeline.MinScore,
		RefusedOnly:  cfg.Pipeline.RefusedOnly,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Sources = defaultSources(req.Sources)

	res, err := s.env.Engine.Run(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			writeError(w, http.StatusServiceUnavailable, "run cancelled")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if res.Degraded() && s.env.Alerter != nil {
		monitoring.NotifyRun(r.Context(), s.env.Alerter, monitoring.SnapshotRun(res))
	}
	writeJSON(w, http.StatusOK, res)
}

// storedLeads applies the status, min_score and limit query parameters.
func (s *leadServer) storedLeads(r *http.Request) ([]model.PersistedLead, error) {
	q := r.URL.Query()
	minScore, err := intParam(q, "min_score", 0)
	if err != nil {
		return nil, err
	}
	limit, err := intParam(q, "limit", 0)
	if err != nil {
		return nil, err
	}
	all, err := s.env.Store.LoadAll(r.Context())
	if err != nil {
		return nil, eris.Wrap(err, "load leads")
	}
	return filterStored(all, q.Get("status"), minScore, limit), nil
}

func (s *leadServer) listLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.storedLeads(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *leadServer) exportLeads(w http.ResponseWriter, r *http.Request) {
	format := export.FormatCSV
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := export.ParseFormat(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = parsed
	}
	leads, err := s.storedLeads(r)
	if err != nil {
		writeLoadError(w, err)
		return
	}

	name := export.FileName(s.now(), format)
	if format == export.FormatXLSX {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	} else {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.Write(w, format, scoredOf(leads)); err != nil {
		zap.L().Error("export leads", zap.Error(err))
	}
}

type statusRequest struct {
	SourceID       string `json:"source_id"`
	Reference      string `json:"reference"`
	WorkflowStatus string `json:"workflow_status"`
}

func (s *leadServer) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.WorkflowStatus = strings.TrimSpace(req.WorkflowStatus)
	if req.SourceID == "" || req.Reference == "" || req.WorkflowStatus == "" {
		writeError(w, http.StatusBadRequest, "source_id, reference and workflow_status are required")
		return
	}

	key := model.LeadKey{SourceID: req.SourceID, Reference: req.Reference}
	if err := s.env.Store.SetWorkflowStatus(r.Context(), key, req.WorkflowStatus); err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		zap.L().Error("set workflow status", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "lead store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// digest renders the digest from stored leads seen in the last days.
func (s *leadServer) digest(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query(), "days", digestLookbackDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	all, err := s.env.Store.LoadAll(r.Context())
	if err != nil {
		writeLoadError(w, err)
		return
	}
	now := s.now()
	picked := digest.Select(recentLeads(all, now.AddDate(0, 0, -days)), cfg.Digest.MinScore, cfg.Digest.TopK)
	body, err := digest.Render(picked, digest.Options{WeekEnding: now, Origin: cfg.Digest.Origin})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "render digest")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// intParam reads a non-negative integer query parameter.
func intParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Wrapf(errBadParam, "%s=%q", name, v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLoadError maps parameter errors to 400 and store failures to 503.
func writeLoadError(w http.ResponseWriter, err error) {
	if eris.Is(err, errBadParam) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	zap.L().Error("load leads", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "lead store unavailable")
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
