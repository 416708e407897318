package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rostermine/internal/config"
	"github.com/sells-group/rostermine/internal/engine"
	"github.com/sells-group/rostermine/internal/loader"
	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/store"
	"github.com/sells-group/rostermine/internal/worklog"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for roster analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, cfg.Engine, cfg.Server.RateLimit),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the API router. Split out from the command so handler
// behavior can be tested without a listening socket.
func newRouter(st store.Store, engCfg config.EngineConfig, rps float64) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if rps > 0 {
		limiter := rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if !limiter.Allow() {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, req)
			})
		})
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/analyze", handleAnalyze(st, engCfg))
	r.Get("/api/runs", handleListRuns(st))
	r.Get("/api/runs/{id}", handleGetRun(st))
	r.Delete("/api/runs/{id}", handleDeleteRun(st))

	return r
}

// analyzeRequest is the POST /api/analyze body.
type analyzeRequest struct {
	Source  string                   `json:"source"`
	Records []model.AssignmentRecord `json:"records"`
	Save    bool                     `json:"save"`
}

// analyzeResponse wraps the result bundle with run bookkeeping.
type analyzeResponse struct {
	RunID       string              `json:"run_id,omitempty"`
	RecordCount int                 `json:"record_count"`
	Result      *model.ResultBundle `json:"result"`
}

func handleAnalyze(st store.Store, engCfg config.EngineConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body analyzeRequest

		// A CSV body is a raw roster export; JSON carries records plus
		// run options.
		if strings.Contains(req.Header.Get("Content-Type"), "csv") {
			records, err := loader.ReadCSV(req.Body, loader.CSVOptions{})
			if err != nil {
				var integrity *worklog.DataIntegrityError
				if errors.As(err, &integrity) {
					writeError(w, http.StatusUnprocessableEntity, integrity.Error())
					return
				}
				writeError(w, http.StatusBadRequest, "invalid csv body")
				return
			}
			body.Records = records
			body.Source = req.URL.Query().Get("source")
			body.Save = req.URL.Query().Get("save") == "true"
		} else if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.Records) == 0 {
			writeError(w, http.StatusBadRequest, "records are required")
			return
		}

		eng := engine.New(engCfg)
		bundle, err := eng.Run(req.Context(), body.Records)
		if err != nil {
			var integrity *worklog.DataIntegrityError
			if errors.As(err, &integrity) {
				writeError(w, http.StatusUnprocessableEntity, integrity.Error())
				return
			}
			zap.L().Error("analyze failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "analysis failed")
			return
		}

		resp := analyzeResponse{
			RecordCount: len(body.Records),
			Result:      bundle,
		}

		if body.Save {
			cfgJSON, _ := json.Marshal(engCfg)
			run := model.AnalysisRun{
				ID:         uuid.New().String(),
				Source:     body.Source,
				Status:     model.RunStatusComplete,
				ConfigJSON: string(cfgJSON),
				Result:     bundle,
				RecordCnt:  len(body.Records),
				RuleCount:  bundle.RuleCount,
				CreatedAt:  time.Now().UTC(),
			}
			if err := st.SaveRun(req.Context(), run); err != nil {
				zap.L().Error("save run failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to persist run")
				return
			}
			resp.RunID = run.ID
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		runs, err := st.ListRuns(req.Context(), store.RunFilter{
			Status: model.RunStatus(q.Get("status")),
			Source: q.Get("source"),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to list runs")
			return
		}
		if runs == nil {
			runs = []model.AnalysisRun{}
		}
		writeJSON(w, http.StatusOK, runs)
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			zap.L().Error("get run failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load run")
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func handleDeleteRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := st.DeleteRun(req.Context(), chi.URLParam(req, "id")); err != nil {
			if eris.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			zap.L().Error("delete run failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete run")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
