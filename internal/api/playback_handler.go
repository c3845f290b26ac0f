package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

func cursorHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Mapper.Cursor())
	}
}

func selectSourceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectSourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.SourceID == "" {
			WriteError(w, http.StatusBadRequest, "source_id is required", "BAD_REQUEST")
			return
		}

		media, err := cfg.Library.Get(r.Context(), req.SourceID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if media == nil {
			WriteError(w, http.StatusNotFound, "media not found", "NOT_FOUND")
			return
		}

		if err := cfg.Mapper.SelectSource(req.SourceID); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Mapper.Cursor())
	}
}

func selectClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Mapper.SelectClip(req.ClipID); err != nil {
			if errors.Is(err, timeline.ErrUnknownClip) {
				WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Mapper.Cursor())
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Mapper.SeekComposition(req.Time); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Mapper.Cursor())
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Mapper.Play()
		WriteJSON(w, http.StatusOK, cfg.Mapper.Cursor())
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Mapper.Pause()
		WriteJSON(w, http.StatusOK, cfg.Mapper.Cursor())
	}
}

// advanceHandler lets the client drive the playback clock: it reports how
// much wall time elapsed and gets back the mapped cursor, including any clip
// switch that crossing a boundary caused.
func advanceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdvanceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.DeltaSec < 0 {
			WriteError(w, http.StatusBadRequest, "delta_sec must not be negative", "BAD_REQUEST")
			return
		}

		if err := cfg.Mapper.Advance(req.DeltaSec); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Mapper.Cursor())
	}
}
