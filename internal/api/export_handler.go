package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cutroom/cutroom-agent/internal/export"
	"github.com/cutroom/cutroom-agent/internal/library"
)

func listExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repository.ListExports(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list exports", "INTERNAL_ERROR")
			return
		}

		resp := ExportsResponse{Exports: make([]ExportResponse, len(jobs))}
		for i, j := range jobs {
			resp.Exports[i] = ExportToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// submitExportHandler queues a render of the current composition. The job is
// picked up by the export runner; the response carries the job id the client
// polls for progress.
func submitExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		clips := cfg.Timeline.Snapshot()
		if len(clips) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "timeline is empty", "NOTHING_TO_EXPORT")
			return
		}

		outputDir := req.OutputDir
		if outputDir == "" {
			outputDir = cfg.ExportDir
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				WriteError(w, http.StatusInternalServerError, "failed to create export dir", "INTERNAL_ERROR")
				return
			}
		}
		if err := export.ValidateOutputDir(outputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		name := req.Name
		if name == "" {
			name = "export-" + time.Now().Format("20060102-150405")
		}

		job := &library.ExportJob{
			ID:         library.NewID(),
			Status:     library.ExportStatusPending,
			OutputPath: export.OutputPath(outputDir, name),
			ClipCount:  len(clips),
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		if err := cfg.Repository.CreateExport(r.Context(), job); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to queue export", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, ExportToResponse(job))
	}
}

func getExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		job, err := cfg.Repository.GetExport(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "export not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, ExportToResponse(job))
	}
}

// exportEDLHandler writes the composition as an edit decision list instead of
// rendering it, for handoff to an NLE.
func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportEDLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		snapshot := cfg.Timeline.Snapshot()
		if len(snapshot) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "timeline is empty", "NOTHING_TO_EXPORT")
			return
		}

		clips := make([]export.Clip, 0, len(snapshot))
		for _, c := range snapshot {
			media, err := cfg.Library.Get(r.Context(), c.SourceID)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
				return
			}
			if media == nil {
				WriteError(w, http.StatusUnprocessableEntity, "source not in library: "+c.SourceID, "UNRESOLVABLE_CLIPS")
				return
			}
			clips = append(clips, export.Clip{
				Name:       media.Filename,
				SourcePath: media.Path,
				TrimStart:  c.TrimStart,
				TrimEnd:    c.TrimEnd,
			})
		}

		projectName := export.SanitizeName(req.ProjectName, 120)
		if projectName == "" {
			projectName = "cutroom_export"
		}

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = 30.0
		}

		edl := export.GenerateEDL(clips, projectName, frameRate)
		outputPath := filepath.Join(req.OutputDir, projectName+".edl")
		if err := os.WriteFile(outputPath, []byte(edl), 0o644); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ExportEDLResponse{
			Status:     "ok",
			OutputPath: outputPath,
			ClipCount:  len(clips),
		})
	}
}
