package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/docintake/internal/model"
	"github.com/sells-group/docintake/internal/monitoring"
	"github.com/sells-group/docintake/internal/pagecache"
	"github.com/sells-group/docintake/internal/provenance"
	"github.com/sells-group/docintake/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document read/edit API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initServeEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(env.Monitor, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
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
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", handleMetrics(env))

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", handleListDocuments(env))
		r.Route("/{documentID}", func(r chi.Router) {
			r.Get("/", handleGetDocument(env))
			r.Get("/pages", handleGetClassifications(env))
			r.Get("/pages/{pageIndex}", handleGetDocumentPage(env))
			r.Post("/pages/{pageIndex}", handleUpdateDocumentPage(env))
			r.Get("/accounts/{accountIndex}/pages/{pageNumber}", handleGetAccountPage(env))
			r.Post("/accounts/{accountIndex}/pages/{pageNumber}", handleUpdateAccountPage(env))
		})
	})

	return r
}

func handleMetrics(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lookback := cfg.Monitoring.LookbackWindowHours
		if lookback <= 0 {
			lookback = 24
		}
		snap, err := env.Monitor.Collect(r.Context(), lookback)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func handleListDocuments(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.DocumentFilter{
			Status: model.DocumentStatus(r.URL.Query().Get("status")),
		}
		if lim := r.URL.Query().Get("limit"); lim != "" {
			n, err := strconv.Atoi(lim)
			if err != nil {
				writeError(w, http.StatusBadRequest, eris.New("invalid limit"))
				return
			}
			filter.Limit = n
		}

		docs, err := env.Store.ListDocuments(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	}
}

func handleGetDocument(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := env.Store.GetDocument(r.Context(), chi.URLParam(r, "documentID"))
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleGetClassifications(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID := chi.URLParam(r, "documentID")
		cls, err := env.Store.GetClassifications(r.Context(), documentID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"document_id": documentID,
			"pages":       cls,
		})
	}
}

func handleGetAccountPage(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := accountPageKey(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		servePage(env, w, r, key)
	}
}

func handleGetDocumentPage(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := documentPageKey(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		servePage(env, w, r, key)
	}
}

func handleUpdateAccountPage(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := accountPageKey(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		applyPageUpdate(env, w, r, key)
	}
}

func handleUpdateDocumentPage(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := documentPageKey(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		applyPageUpdate(env, w, r, key)
	}
}

func servePage(env *pipelineEnv, w http.ResponseWriter, r *http.Request, key string) {
	page, err := env.Cache.Get(r.Context(), key)
	if eris.Is(err, pagecache.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func applyPageUpdate(env *pipelineEnv, w http.ResponseWriter, r *http.Request, key string) {
	var req provenance.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode update"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	page, err := env.Cache.ApplyUpdate(r.Context(), key, req, time.Now().UTC())
	if eris.Is(err, pagecache.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func accountPageKey(r *http.Request) (string, error) {
	accountIndex, err := strconv.Atoi(chi.URLParam(r, "accountIndex"))
	if err != nil || accountIndex < 0 {
		return "", eris.New("invalid account index")
	}
	pageNumber, err := strconv.Atoi(chi.URLParam(r, "pageNumber"))
	if err != nil || pageNumber < 1 {
		return "", eris.New("invalid page number")
	}
	return pagecache.AccountPageKey(chi.URLParam(r, "documentID"), accountIndex, pageNumber), nil
}

func documentPageKey(r *http.Request) (string, error) {
	pageIndex, err := strconv.Atoi(chi.URLParam(r, "pageIndex"))
	if err != nil || pageIndex < 0 {
		return "", eris.New("invalid page index")
	}
	return pagecache.DocumentPageKey(chi.URLParam(r, "documentID"), pageIndex), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
