// Package api exposes the dashboard's HTTP surface. Read endpoints are
// best-effort: they answer 200 with whatever the store could produce,
// because a dashboard that errors on a half-broken data directory is
// worse than one that renders what exists.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/tidehunter/translog/internal/advice"
	"github.com/tidehunter/translog/internal/blob"
	"github.com/tidehunter/translog/internal/chat"
	"github.com/tidehunter/translog/internal/logstore"
)

// Store provides log snapshots.
type Store interface {
	Load() *logstore.Snapshot
}

// Chatter runs one assistant exchange.
type Chatter interface {
	Exchange(ctx context.Context, message string, history []chat.Turn) (*chat.Result, error)
}

// Adviser produces the daily coaching note.
type Adviser interface {
	Daily(ctx context.Context) (*advice.Note, error)
}

// PhotoStore is the blob storage surface the photo endpoints need.
type PhotoStore interface {
	List(ctx context.Context) ([]blob.Photo, error)
	Upload(ctx context.Context, filename, contentType string, data io.Reader) (string, error)
	Configured() bool
}

// Server holds the handler dependencies.
type Server struct {
	logger  *slog.Logger
	store   Store
	chatter Chatter
	adviser Adviser
	photos  PhotoStore

	// uploadsDir is the local photo directory used when no blob store
	// is configured. Empty on read-only deployments, where a local
	// fallback cannot work.
	uploadsDir string
}

// NewServer builds a Server. uploadsDir may be "" to disable the local
// photo fallback.
func NewServer(logger *slog.Logger, store Store, chatter Chatter, adviser Adviser, photos PhotoStore, uploadsDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:     logger.With("component", "api"),
		store:      store,
		chatter:    chatter,
		adviser:    adviser,
		photos:     photos,
		uploadsDir: uploadsDir,
	}
}

// Handler builds the routed handler with logging and CORS applied.
// The dashboard may be served from a different origin than the API.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/data", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/api/training", s.handleTraining).Methods(http.MethodGet)
	r.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/api/advice", s.handleAdvice).Methods(http.MethodGet)
	r.HandleFunc("/api/photos", s.handlePhotos).Methods(http.MethodGet)
	r.HandleFunc("/api/upload-photo", s.handleUploadPhoto).Methods(http.MethodPost)

	if s.uploadsDir != "" {
		r.PathPrefix("/static/uploads/").Handler(http.StripPrefix("/static/uploads/",
			http.FileServer(http.Dir(s.uploadsDir))))
	}

	r.Use(s.loggingMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

// errorResponse writes a JSON error body.
func (s *Server) errorResponse(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
