package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidehunter/translog/internal/blob"
	"github.com/tidehunter/translog/internal/buildinfo"
	"github.com/tidehunter/translog/internal/chat"
	"github.com/tidehunter/translog/internal/llm"
	"github.com/tidehunter/translog/internal/metrics"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Version,
		"uptime":  buildinfo.Uptime().Round(time.Second).String(),
	})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Load()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"baseline":   snap.Baseline,
		"targets":    snap.Targets,
		"daily_logs": snap.Days,
		"streak":     snap.Streak(),
		"goal":       snap.Goal,
		"total_days": len(snap.Days),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Load()
	if len(snap.Days) == 0 {
		// Kept at 200: the dashboard polls this and treats the error
		// field as "nothing to chart yet".
		s.writeJSON(w, http.StatusOK, map[string]string{"error": "no data available"})
		return
	}

	avg := metrics.WindowAverages(snap.Days, metrics.StatsWindow)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"avg_protein":      avg.Protein,
		"avg_carbs":        avg.Carbs,
		"avg_fat":          avg.Fat,
		"avg_kcal":         avg.Kcal,
		"avg_seafood":      avg.SeafoodKg,
		"avg_weight":       avg.FastedWeight,
		"days_tracked":     len(snap.Days),
		"recent_days":      avg.Days,
		"total_seafood_kg": metrics.TotalSeafood(snap.Days),
		"progress":         metrics.ProgressSummary(snap.Baseline, snap.Targets),
	})
}

func (s *Server) handleTraining(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Load()

	trainingData := make([]map[string]any, 0)
	for i := range snap.Days {
		d := &snap.Days[i]
		if d.Training == nil {
			continue
		}
		trainingData = append(trainingData, map[string]any{
			"day":      d.Day,
			"date":     d.Date,
			"training": d.Training,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"training_data":   trainingData,
		"exercise_groups": metrics.ExerciseGroups(snap.Days),
		"total_sessions":  metrics.SessionCount(snap.Days),
	})
}

// chatRequest is the POST /api/chat body.
type chatRequest struct {
	Message string      `json:"message"`
	History []chat.Turn `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}

	result, err := s.chatter.Exchange(r.Context(), req.Message, req.History)
	if err != nil {
		if errors.Is(err, llm.ErrAuth) {
			s.logger.Error("chat credentials rejected", "error", err)
			s.errorResponse(w, http.StatusBadGateway,
				"the assistant's API key was rejected; verify the configured credentials")
			return
		}
		s.logger.Error("chat exchange failed", "error", err)
		s.errorResponse(w, http.StatusBadGateway,
			"the assistant is unavailable right now; try again shortly")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	note, err := s.adviser.Daily(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusBadGateway, "advice is unavailable right now")
		return
	}
	s.writeJSON(w, http.StatusOK, note)
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := s.photos.List(r.Context())
	if err != nil {
		// Best-effort: an empty gallery with a note beats a hard error.
		s.logger.Warn("photo listing failed", "error", err)
		photos = nil
	}
	photos = append(photos, s.localPhotos()...)
	if photos == nil {
		photos = []blob.Photo{}
	}

	resp := map[string]any{"photos": photos}
	if err != nil {
		resp["error"] = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// localPhotos lists images saved to the local uploads directory by
// deployments that have no blob store.
func (s *Server) localPhotos() []blob.Photo {
	if s.uploadsDir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.uploadsDir)
	if err != nil {
		return nil
	}
	var photos []blob.Photo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		default:
			continue
		}
		p := blob.Photo{URL: "/static/uploads/" + e.Name()}
		if info, err := e.Info(); err == nil {
			p.Date = info.ModTime().UTC().Format(time.RFC3339)
		}
		photos = append(photos, p)
	}
	return photos
}

const maxUploadBytes = 10 << 20

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	if !s.photos.Configured() && s.uploadsDir == "" {
		s.errorResponse(w, http.StatusInternalServerError,
			"photo storage token not configured; set BLOB_READ_WRITE_TOKEN")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "expected a multipart upload under 10MB")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "no photo file provided")
		return
	}
	defer file.Close()

	// Timestamped name keeps repeated uploads of the same file distinct.
	filename := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), filepath.Base(header.Filename))

	if !s.photos.Configured() {
		// Writable deployment without a blob store: keep the photo on
		// local disk and serve it from the static route.
		if err := s.saveLocal(filename, file); err != nil {
			s.logger.Error("local photo save failed", "error", err)
			s.writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   fmt.Sprintf("upload failed: %v", err),
			})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"url":     "/static/uploads/" + filename,
		})
		return
	}

	url, err := s.photos.Upload(r.Context(), filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		s.logger.Error("photo upload failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("upload failed: %v", err),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "url": url})
}

func (s *Server) saveLocal(filename string, src io.Reader) error {
	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(s.uploadsDir, filename))
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}
