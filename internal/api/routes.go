package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cutroom/cutroom-agent/internal/config"
	"github.com/cutroom/cutroom-agent/internal/library"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(CORSMiddleware())
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/media", listMediaHandler(cfg))
		r.Post("/media", importMediaHandler(cfg))
		r.Get("/media/{id}", getMediaHandler(cfg))
		r.Delete("/media/{id}", deleteMediaHandler(cfg))
		r.Get("/media/folders", listWatchFoldersHandler(cfg))
		r.Post("/media/folders", addWatchFolderHandler(cfg))

		r.Get("/timeline/clips", listClipsHandler(cfg))
		r.Post("/timeline/clips", placeClipHandler(cfg))
		r.Delete("/timeline/clips/{id}", deleteClipHandler(cfg))
		r.Post("/timeline/clips/{id}/move", moveClipHandler(cfg))
		r.Post("/timeline/clips/{id}/trim", trimClipHandler(cfg))
		r.Post("/timeline/clips/{id}/split", splitClipHandler(cfg))
		r.Get("/timeline/clip-at", clipAtHandler(cfg))
		r.Get("/timeline/duration", timelineDurationHandler(cfg))

		r.Get("/exports", listExportsHandler(cfg))
		r.Post("/exports", submitExportHandler(cfg))
		r.Get("/exports/{id}", getExportHandler(cfg))
		r.Post("/exports/edl", exportEDLHandler(cfg))

		r.Get("/playback/file", playbackFileHandler(cfg))
		r.Get("/playback/cursor", cursorHandler(cfg))
		r.Post("/playback/select-source", selectSourceHandler(cfg))
		r.Post("/playback/select-clip", selectClipHandler(cfg))
		r.Post("/playback/seek", seekHandler(cfg))
		r.Post("/playback/play", playHandler(cfg))
		r.Post("/playback/pause", pauseHandler(cfg))
		r.Post("/playback/advance", advanceHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		mediaCount, _ := cfg.Library.Count(ctx)
		clips := cfg.Timeline.Clips()
		exports, _ := cfg.Repository.ListExports(ctx, 10)

		state := "idle"
		var activeExport *ExportResponse
		exportsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, j := range exports {
			if j.Status == library.ExportStatusRunning {
				state = "exporting"
				resp := ExportToResponse(j)
				activeExport = &resp
				exportsRunning++
			}
			if j.Status == library.ExportStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:           state,
			LastError:       lastError,
			MediaCount:      mediaCount,
			ClipCount:       len(clips),
			TimelineSeconds: cfg.Timeline.TotalDuration(),
			ExportsRunning:  exportsRunning,
			ActiveExport:    activeExport,
		})
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		media, err := cfg.Library.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list media", "INTERNAL_ERROR")
			return
		}

		resp := MediaListResponse{Media: make([]MediaResponse, len(media))}
		for i, m := range media {
			resp.Media[i] = MediaToResponse(m)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func importMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		media, err := cfg.Library.Import(r.Context(), req.Path)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, MediaToResponse(media))
	}
}

func getMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		media, err := cfg.Library.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if media == nil {
			WriteError(w, http.StatusNotFound, "media not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, MediaToResponse(media))
	}
}

func deleteMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Library.Remove(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listWatchFoldersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folders, err := cfg.Library.WatchFolders(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list watch folders", "INTERNAL_ERROR")
			return
		}

		resp := WatchFoldersResponse{Folders: make([]WatchFolderResponse, len(folders))}
		for i, f := range folders {
			resp.Folders[i] = WatchFolderToResponse(f)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func addWatchFolderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddWatchFolderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		folder, err := cfg.Library.AddWatchFolder(r.Context(), req.Path)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, WatchFolderToResponse(folder))
	}
}

func playbackFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mediaID := r.URL.Query().Get("media_id")
		if mediaID == "" {
			WriteError(w, http.StatusBadRequest, "media_id is required", "BAD_REQUEST")
			return
		}

		media, err := cfg.Library.Get(r.Context(), mediaID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if media == nil {
			WriteError(w, http.StatusNotFound, "media not found", "NOT_FOUND")
			return
		}

		if err := cfg.PlaybackServer.ServeFile(w, r, media.Path); err != nil {
			cfg.Logger.Error("playback error", "error", err, "media_id", mediaID)
		}
	}
}
