package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

func listClipsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips := cfg.Timeline.Clips()
		resp := ClipsResponse{
			Clips:    make([]ClipResponse, len(clips)),
			Duration: cfg.Timeline.TotalDuration(),
		}
		for i, c := range clips {
			resp.Clips[i] = ClipToResponse(c)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func placeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaceClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.SourceID == "" {
			WriteError(w, http.StatusBadRequest, "source_id is required", "BAD_REQUEST")
			return
		}
		if req.Track < 0 {
			WriteError(w, http.StatusBadRequest, "track must not be negative", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Timeline.Place(req.SourceID, req.Track, req.Start)
		if err != nil {
			WriteTimelineError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ClipToResponse(clip))
	}
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req MoveClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		newStart, err := cfg.Timeline.Move(id, req.Start)
		if err != nil {
			WriteTimelineError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, MoveClipResponse{ID: id, Start: newStart})
	}
}

func trimClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req TrimClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var side timeline.Side
		switch req.Side {
		case "start":
			side = timeline.SideStart
		case "end":
			side = timeline.SideEnd
		default:
			WriteError(w, http.StatusBadRequest, "side must be \"start\" or \"end\"", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Timeline.Trim(id, side, req.Boundary)
		if err != nil {
			WriteTimelineError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req SplitClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		first, second, err := cfg.Timeline.Split(id, req.At)
		if err != nil {
			WriteTimelineError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SplitClipResponse{
			First:  ClipToResponse(first),
			Second: ClipToResponse(second),
		})
	}
}

func deleteClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Timeline.Delete(id); err != nil {
			WriteTimelineError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func timelineDurationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, TimelineDurationResponse{
			Duration: cfg.Timeline.TotalDuration(),
		})
	}
}

func clipAtHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("t")
		if raw == "" {
			WriteError(w, http.StatusBadRequest, "t is required", "BAD_REQUEST")
			return
		}
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "t must be a number", "BAD_REQUEST")
			return
		}

		clip, ok := cfg.Timeline.ClipAt(t)
		if !ok {
			WriteError(w, http.StatusNotFound, "no clip at that time", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, ClipToResponse(clip))
	}
}
