package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Abaaza/MJDv8/internal/matcher"
	"github.com/Abaaza/MJDv8/internal/model"
	"github.com/Abaaza/MJDv8/internal/store"
	"github.com/Abaaza/MJDv8/internal/writer"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job API",
	Long:  "Exposes job submission and inspection over HTTP: POST /v1/jobs runs a match from file paths, GET /v1/jobs lists past runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		embedder, err := initEmbedder()
		if err != nil {
			return err
		}
		engine := matcher.NewEngine(cfg, st, embedder)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(ctx, st, engine),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// jobRequest is the POST /v1/jobs body. Paths are local to the server host.
type jobRequest struct {
	InquiryPath   string `json:"inquiry_path"`
	PricelistPath string `json:"pricelist_path,omitempty"`
	OutputPath    string `json:"output_path,omitempty"`
}

func newRouter(ctx context.Context, st store.Store, engine *matcher.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/v1/jobs", func(w http.ResponseWriter, req *http.Request) {
		var body jobRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.InquiryPath == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "inquiry_path is required"})
			return
		}

		// Run the match asynchronously; clients poll /v1/jobs for progress.
		go runJob(ctx, engine, body)

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"inquiry": body.InquiryPath,
		})
	})

	r.Get("/v1/jobs", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		jobs, err := st.ListJobs(req.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if jobs == nil {
			jobs = []model.Job{}
		}
		writeJSON(w, http.StatusOK, jobs)
	})

	r.Get("/v1/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
		job, err := st.GetJob(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		writeJSON(w, http.StatusOK, job)
	})

	r.Get("/v1/jobs/{id}/results", func(w http.ResponseWriter, req *http.Request) {
		jobID := chi.URLParam(req, "id")
		if _, err := st.GetJob(req.Context(), jobID); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		results, err := st.ListResults(req.Context(), jobID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if results == nil {
			results = []model.MatchResult{}
		}
		writeJSON(w, http.StatusOK, results)
	})

	return r
}

// runJob executes one submitted job in the background. Failures are already
// recorded on the job row; logging is the only extra reporting channel.
func runJob(ctx context.Context, engine *matcher.Engine, body jobRequest) {
	log := zap.L().With(zap.String("inquiry", body.InquiryPath))

	var catalog []model.CatalogEntry
	if body.PricelistPath != "" {
		loaded, err := loadPricelist(body.PricelistPath)
		if err != nil {
			log.Error("job pricelist load failed", zap.Error(err))
			return
		}
		catalog = loaded
	}

	res, err := engine.Run(ctx, body.InquiryPath, catalog)
	if err != nil {
		log.Error("job failed", zap.Error(err))
		return
	}

	if body.OutputPath != "" {
		if err := writer.Write(body.OutputPath, res.Results); err != nil {
			log.Error("job output write failed", zap.Error(err))
			return
		}
	}

	log.Info("job complete",
		zap.String("job_id", res.Job.ID),
		zap.Int("items", len(res.Results)),
		zap.Int("matched", res.MatchedCount),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
