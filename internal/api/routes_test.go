package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cutroom/cutroom-agent/internal/library"
	"github.com/cutroom/cutroom-agent/internal/playback"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

const testToken = "test-token-12345678"

// fakeLibrary backs both the media API and the timeline store's duration
// lookups.
type fakeLibrary struct {
	mu     sync.Mutex
	media  map[string]*library.Media
	nextID int
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{media: map[string]*library.Media{
		"src-1": {ID: "src-1", Path: "/media/a.mp4", Filename: "a.mp4", DurationSec: 10, CreatedAt: time.Now()},
		"src-2": {ID: "src-2", Path: "/media/b.mp4", Filename: "b.mp4", DurationSec: 5, CreatedAt: time.Now()},
	}}
}

func (f *fakeLibrary) Import(_ context.Context, path string) (*library.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.media {
		if m.Path == path {
			return m, nil
		}
	}
	f.nextID++
	m := &library.Media{ID: fmt.Sprintf("imported-%d", f.nextID), Path: path, DurationSec: 7, CreatedAt: time.Now()}
	f.media[m.ID] = m
	return m, nil
}

func (f *fakeLibrary) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.media, id)
	return nil
}

func (f *fakeLibrary) Get(_ context.Context, id string) (*library.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.media[id], nil
}

func (f *fakeLibrary) List(_ context.Context) ([]*library.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*library.Media, 0, len(f.media))
	for _, m := range f.media {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeLibrary) Count(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.media), nil
}

func (f *fakeLibrary) AddWatchFolder(_ context.Context, path string) (*library.WatchFolder, error) {
	return &library.WatchFolder{ID: "wf-1", Path: path, CreatedAt: time.Now()}, nil
}

func (f *fakeLibrary) WatchFolders(context.Context) ([]*library.WatchFolder, error) {
	return nil, nil
}

func (f *fakeLibrary) SourceDuration(sourceID string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.media[sourceID]
	if !ok {
		return 0, false
	}
	return m.DurationSec, true
}

// fakeRepository covers the auth token lookup and export job storage.
type fakeRepository struct {
	mu      sync.Mutex
	exports []*library.ExportJob
	config  map[string]string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{config: map[string]string{"auth_token": testToken}}
}

func (f *fakeRepository) CreateMedia(context.Context, *library.Media) error     { return nil }
func (f *fakeRepository) GetMedia(context.Context, string) (*library.Media, error) {
	return nil, nil
}
func (f *fakeRepository) GetMediaByPath(context.Context, string) (*library.Media, error) {
	return nil, nil
}
func (f *fakeRepository) ListMedia(context.Context) ([]*library.Media, error) { return nil, nil }
func (f *fakeRepository) DeleteMedia(context.Context, string) error           { return nil }
func (f *fakeRepository) CountMedia(context.Context) (int, error)             { return 0, nil }
func (f *fakeRepository) CreateWatchFolder(context.Context, *library.WatchFolder) error {
	return nil
}
func (f *fakeRepository) GetWatchFolderByPath(context.Context, string) (*library.WatchFolder, error) {
	return nil, nil
}
func (f *fakeRepository) ListWatchFolders(context.Context) ([]*library.WatchFolder, error) {
	return nil, nil
}

func (f *fakeRepository) CreateExport(_ context.Context, j *library.ExportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exports = append(f.exports, j)
	return nil
}

func (f *fakeRepository) GetExport(_ context.Context, id string) (*library.ExportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.exports {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, nil
}

func (f *fakeRepository) ListExports(_ context.Context, limit int) ([]*library.ExportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.exports) {
		limit = len(f.exports)
	}
	return f.exports[:limit], nil
}

func (f *fakeRepository) ListPendingExports(context.Context) ([]*library.ExportJob, error) {
	return nil, nil
}
func (f *fakeRepository) UpdateExportStatus(context.Context, string, string, string) error {
	return nil
}
func (f *fakeRepository) UpdateExportProgress(context.Context, string, int) error { return nil }

func (f *fakeRepository) GetConfig(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config[key], nil
}

func (f *fakeRepository) SetConfig(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config[key] = value
	return nil
}

type testEnv struct {
	cfg   ServerConfig
	lib   *fakeLibrary
	repo  *fakeRepository
	store *timeline.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lib := newFakeLibrary()
	repo := newFakeRepository()
	store := timeline.NewStore(lib)
	mapper := playback.NewMapper(store, playback.NewStateLoader())

	return &testEnv{
		cfg: ServerConfig{
			Port:           0,
			Library:        lib,
			Repository:     repo,
			Timeline:       store,
			Mapper:         mapper,
			PlaybackServer: playback.NewServer(logger),
			ExportDir:      t.TempDir(),
			Logger:         logger,
			StartTime:      time.Now().Add(-10 * time.Second),
			DeviceID:       "test-device",
		},
		lib:   lib,
		repo:  repo,
		store: store,
	}
}

// do sends an authenticated request through the full router.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	NewRouter(e.cfg).ServeHTTP(rr, req)
	return rr
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestHealth_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	NewRouter(env.cfg).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" {
		t.Fatalf("health status = %v, want ok", body["status"])
	}
	if body["device_id"] != "test-device" {
		t.Fatalf("device_id = %v", body["device_id"])
	}
}

func TestStatus_Idle(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	body := decodeJSONBody(t, rr)
	if body["state"] != "idle" {
		t.Fatalf("state = %v, want idle", body["state"])
	}
	if body["media_count"] != float64(2) {
		t.Fatalf("media_count = %v, want 2", body["media_count"])
	}
	if body["clip_count"] != float64(0) {
		t.Fatalf("clip_count = %v, want 0", body["clip_count"])
	}
}

func TestStatus_ReflectsRunningExport(t *testing.T) {
	env := newTestEnv(t)
	env.repo.exports = append(env.repo.exports, &library.ExportJob{
		ID:     "job-1",
		Status: library.ExportStatusRunning,
	})

	rr := env.do(t, http.MethodGet, "/status", nil)
	body := decodeJSONBody(t, rr)
	if body["state"] != "exporting" {
		t.Fatalf("state = %v, want exporting", body["state"])
	}
	if body["exports_running"] != float64(1) {
		t.Fatalf("exports_running = %v, want 1", body["exports_running"])
	}
}

func TestListMedia(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/media", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp MediaListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Media) != 2 {
		t.Fatalf("media count = %d, want 2", len(resp.Media))
	}
}

func TestGetMedia_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/media/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestImportMedia_RequiresPath(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/media", ImportRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestImportMedia(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/media", ImportRequest{Path: "/media/new.mp4"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
	}

	var resp MediaResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Path != "/media/new.mp4" {
		t.Fatalf("path = %q", resp.Path)
	}
}
