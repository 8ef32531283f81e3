package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/tidehunter/translog/internal/advice"
	"github.com/tidehunter/translog/internal/blob"
	"github.com/tidehunter/translog/internal/chat"
	"github.com/tidehunter/translog/internal/llm"
	"github.com/tidehunter/translog/internal/logstore"
)

type fakeStore struct{ snap *logstore.Snapshot }

func (f fakeStore) Load() *logstore.Snapshot {
	if f.snap != nil {
		return f.snap
	}
	return &logstore.Snapshot{Baseline: logstore.Baseline{}, Targets: logstore.Targets{}}
}

type fakeChatter struct {
	result *chat.Result
	err    error
	gotMsg string
}

func (f *fakeChatter) Exchange(ctx context.Context, message string, history []chat.Turn) (*chat.Result, error) {
	f.gotMsg = message
	return f.result, f.err
}

type fakeAdviser struct {
	note *advice.Note
	err  error
}

func (f fakeAdviser) Daily(ctx context.Context) (*advice.Note, error) { return f.note, f.err }

type fakePhotos struct {
	photos   []blob.Photo
	listErr  error
	uploaded string
	upErr    error
	token    bool
}

func (f *fakePhotos) List(ctx context.Context) ([]blob.Photo, error) { return f.photos, f.listErr }
func (f *fakePhotos) Configured() bool                               { return f.token }
func (f *fakePhotos) Upload(ctx context.Context, filename, contentType string, data io.Reader) (string, error) {
	if f.upErr != nil {
		return "", f.upErr
	}
	f.uploaded = filename
	return "https://cdn.example/" + filename, nil
}

func testServer(store fakeStore, chatter *fakeChatter, adviser fakeAdviser, photos *fakePhotos) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(logger, store, chatter, adviser, photos, "").Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response not JSON: %v\n%s", err, rec.Body.String())
	}
	return rec.Code, decoded
}

func snapWithDays() *logstore.Snapshot {
	p1, p2 := 300.0, 320.0
	s1 := 1.2
	return &logstore.Snapshot{
		Baseline: logstore.Baseline{"weight": 97.2},
		Targets:  logstore.Targets{"weight": {Min: 86, Max: 88, IsRange: true}},
		Goal:     logstore.GoalInfo{Goal: "recomposition"},
		Days: []logstore.DayRecord{
			{Day: 1, Date: "2026-01-03", Protein: &p1, SeafoodKg: &s1,
				Training: &logstore.Training{Text: "2hr surfing"}},
			{Day: 2, Date: "2026-01-04", Protein: &p2},
		},
	}
}

func TestHealth(t *testing.T) {
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{})
	code, body := doJSON(t, h, http.MethodGet, "/health", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("code=%d body=%v", code, body)
	}
}

func TestData(t *testing.T) {
	h := testServer(fakeStore{snap: snapWithDays()}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{})
	code, body := doJSON(t, h, http.MethodGet, "/api/data", "")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if body["streak"] != float64(2) || body["total_days"] != float64(2) {
		t.Errorf("body = %v", body)
	}
	logs, ok := body["daily_logs"].([]any)
	if !ok || len(logs) != 2 {
		t.Fatalf("daily_logs = %v", body["daily_logs"])
	}
	first, _ := logs[0].(map[string]any)
	if first["protein"] != float64(300) {
		t.Errorf("first day = %v", first)
	}
	goal, _ := body["goal"].(map[string]any)
	if goal["goal"] != "recomposition" {
		t.Errorf("goal = %v", body["goal"])
	}
	targets, _ := body["targets"].(map[string]any)
	w, _ := targets["weight"].(map[string]any)
	if w["min"] != float64(86) || w["max"] != float64(88) {
		t.Errorf("targets = %v", body["targets"])
	}
}

func TestStats(t *testing.T) {
	h := testServer(fakeStore{snap: snapWithDays()}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{})
	code, body := doJSON(t, h, http.MethodGet, "/api/stats", "")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if body["avg_protein"] != float64(310) {
		t.Errorf("avg_protein = %v", body["avg_protein"])
	}
	// Only day 1 logged seafood; day 2 must not dilute the average.
	if body["avg_seafood"] != 1.2 {
		t.Errorf("avg_seafood = %v", body["avg_seafood"])
	}
	if body["days_tracked"] != float64(2) {
		t.Errorf("days_tracked = %v", body["days_tracked"])
	}
	progress, ok := body["progress"].(map[string]any)
	if !ok {
		t.Fatalf("progress = %v", body["progress"])
	}
	w, _ := progress["weight"].(float64)
	if w < 9.19 || w > 9.21 {
		t.Errorf("weight progress = %v, want remaining distance to the 88 upper bound", w)
	}
}

func TestStats_EmptyLogStays200(t *testing.T) {
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{})
	code, body := doJSON(t, h, http.MethodGet, "/api/stats", "")
	if code != http.StatusOK {
		t.Errorf("code = %d, want 200 even with no data", code)
	}
	if body["error"] == nil {
		t.Errorf("body = %v, want error note", body)
	}
}

func TestTraining(t *testing.T) {
	h := testServer(fakeStore{snap: snapWithDays()}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{})
	code, body := doJSON(t, h, http.MethodGet, "/api/training", "")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	if body["total_sessions"] != float64(1) {
		t.Errorf("total_sessions = %v", body["total_sessions"])
	}
	td, ok := body["training_data"].([]any)
	if !ok || len(td) != 1 {
		t.Fatalf("training_data = %v", body["training_data"])
	}
}

func TestChat(t *testing.T) {
	chatter := &fakeChatter{result: &chat.Result{
		Response:       "logged it",
		FunctionCalled: "add_day_entry",
		FunctionResult: json.RawMessage(`{"success":true}`),
	}}
	h := testServer(fakeStore{}, chatter, fakeAdviser{}, &fakePhotos{})

	code, body := doJSON(t, h, http.MethodPost, "/api/chat",
		`{"message": "log 310g protein", "history": [{"role":"user","content":"hi"}]}`)
	if code != http.StatusOK {
		t.Fatalf("code = %d body = %v", code, body)
	}
	if body["response"] != "logged it" || body["function_called"] != "add_day_entry" {
		t.Errorf("body = %v", body)
	}
	if chatter.gotMsg != "log 310g protein" {
		t.Errorf("message passed = %q", chatter.gotMsg)
	}
}

func TestChat_MissingMessage(t *testing.T) {
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{})
	code, body := doJSON(t, h, http.MethodPost, "/api/chat", `{"history": []}`)
	if code != http.StatusBadRequest || body["error"] == nil {
		t.Errorf("code=%d body=%v", code, body)
	}
}

func TestChat_AuthErrorMapsToBadGateway(t *testing.T) {
	chatter := &fakeChatter{err: llm.ErrAuth}
	h := testServer(fakeStore{}, chatter, fakeAdviser{}, &fakePhotos{})
	code, body := doJSON(t, h, http.MethodPost, "/api/chat", `{"message": "hi"}`)
	if code != http.StatusBadGateway {
		t.Errorf("code = %d", code)
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "API key") {
		t.Errorf("error = %q, want credential remediation", msg)
	}
}

func TestAdvice(t *testing.T) {
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{note: &advice.Note{
		Advice:    "eat fish",
		Timestamp: "2026-01-10T08:00:00Z",
	}}, &fakePhotos{})

	code, body := doJSON(t, h, http.MethodGet, "/api/advice", "")
	if code != http.StatusOK || body["advice"] != "eat fish" || body["timestamp"] == nil {
		t.Errorf("code=%d body=%v", code, body)
	}
}

func TestPhotos(t *testing.T) {
	photos := &fakePhotos{token: true, photos: []blob.Photo{
		{URL: "https://cdn.example/a.jpg", Date: "2026-01-05T10:00:00Z"},
	}}
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, photos)

	code, body := doJSON(t, h, http.MethodGet, "/api/photos", "")
	if code != http.StatusOK {
		t.Fatalf("code = %d", code)
	}
	list, ok := body["photos"].([]any)
	if !ok || len(list) != 1 {
		t.Errorf("photos = %v", body["photos"])
	}
}

func TestPhotos_ListErrorStays200(t *testing.T) {
	photos := &fakePhotos{token: true, listErr: errors.New("store down")}
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, photos)

	code, body := doJSON(t, h, http.MethodGet, "/api/photos", "")
	if code != http.StatusOK {
		t.Errorf("code = %d, want 200", code)
	}
	if list, ok := body["photos"].([]any); !ok || len(list) != 0 {
		t.Errorf("photos = %v, want empty list", body["photos"])
	}
}

func TestUploadPhoto(t *testing.T) {
	photos := &fakePhotos{token: true}
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, photos)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "progress.jpg")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("jpegbytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true || body["url"] == nil {
		t.Errorf("body = %v", body)
	}
	if !strings.HasSuffix(photos.uploaded, "_progress.jpg") {
		t.Errorf("uploaded name = %q, want timestamped prefix", photos.uploaded)
	}
}

func TestUploadPhoto_NoToken(t *testing.T) {
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{token: false})
	code, body := doJSON(t, h, http.MethodPost, "/api/upload-photo", "")
	if code != http.StatusInternalServerError {
		t.Errorf("code = %d", code)
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "BLOB_READ_WRITE_TOKEN") {
		t.Errorf("error = %q", msg)
	}
}

func TestUploadPhoto_NoFile(t *testing.T) {
	photos := &fakePhotos{token: true}
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, photos)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("unrelated", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d", rec.Code)
	}
}

func TestUploadPhoto_LocalFallback(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewServer(logger, fakeStore{}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{token: false}, dir).Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("photo", "progress.jpg")
	fw.Write([]byte("jpegbytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d body = %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	url, _ := body["url"].(string)
	if !strings.HasPrefix(url, "/static/uploads/") {
		t.Errorf("url = %q", url)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("uploads dir entries = %v, %v", entries, err)
	}

	// The gallery must now include the local file.
	code, listBody := doJSON(t, h, http.MethodGet, "/api/photos", "")
	if code != http.StatusOK {
		t.Fatalf("photos code = %d", code)
	}
	list, _ := listBody["photos"].([]any)
	if len(list) != 1 {
		t.Errorf("photos = %v", listBody["photos"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := testServer(fakeStore{}, &fakeChatter{}, fakeAdviser{}, &fakePhotos{})
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d", rec.Code)
	}
}
