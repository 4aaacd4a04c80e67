package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"charucocalib/internal/dto"
	"charucocalib/internal/logger"
	"charucocalib/internal/model"
	"charucocalib/internal/repository"
	"charucocalib/internal/services"
)

// Submitter queues calibration jobs.
type Submitter interface {
	Submit(video string) (string, error)
}

// CalibrationsHandler lists the history on GET and queues a new calibration on POST.
func CalibrationsHandler(submitter Submitter, repo repository.CalibrationRepository, logger *logger.Logger) http.HandlerFunc {
	list := ListCalibrationsHandler(repo, logger)
	submit := SubmitCalibrationHandler(submitter, logger)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			submit(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// SubmitCalibrationHandler accepts {"video": path} as JSON or a "video" form field.
func SubmitCalibrationHandler(submitter Submitter, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req dto.SubmitRequest
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
		} else {
			req.Video = r.FormValue("video")
		}

		req.Video = strings.TrimSpace(req.Video)
		if req.Video == "" {
			http.Error(w, "Missing video path", http.StatusBadRequest)
			return
		}
		if info, err := os.Stat(req.Video); err != nil || info.IsDir() {
			http.Error(w, "Video not found: "+req.Video, http.StatusBadRequest)
			return
		}

		jobID, err := submitter.Submit(req.Video)
		switch {
		case errors.Is(err, services.ErrQueueFull), errors.Is(err, services.ErrStopped):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		case err != nil:
			logger.Error("Failed to submit calibration: %v", err)
			http.Error(w, "Failed to submit calibration", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, http.StatusAccepted, dto.SubmitResponse{JobID: jobID})
	}
}

// ListCalibrationsHandler returns a page of the calibration history.
func ListCalibrationsHandler(repo repository.CalibrationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 10)

		filter := &dto.CalibrationFilter{
			Success: parseBool(q.Get("success")),
			Video:   q.Get("video"),
			Limit:   limit,
			Offset:  (page - 1) * limit,
		}

		total, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Failed to count calibrations: %v", err)
			http.Error(w, "Failed to load calibrations", http.StatusInternalServerError)
			return
		}
		rows, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Failed to load calibrations: %v", err)
			http.Error(w, "Failed to load calibrations", http.StatusInternalServerError)
			return
		}

		infos := make([]dto.CalibrationInfo, 0, len(rows))
		for _, c := range rows {
			infos = append(infos, dto.NewCalibrationInfo(c))
		}
		writeJSON(w, logger, http.StatusOK, dto.CalibrationsData{
			Calibrations: infos,
			Length:       total,
			TotalPages:   (total + limit - 1) / limit,
			CurrentPage:  page,
			Limit:        limit,
		})
	}
}

// GetCalibrationHandler returns one stored calibration with its intrinsics.
func GetCalibrationHandler(repo repository.CalibrationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			http.Error(w, "Invalid id", http.StatusBadRequest)
			return
		}
		c, err := repo.GetByID(id)
		if !respondLookup(w, logger, err) {
			return
		}
		writeJSON(w, logger, http.StatusOK, c)
	}
}

// LatestCalibrationHandler returns the newest successful calibration.
func LatestCalibrationHandler(repo repository.CalibrationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := repo.Latest()
		if !respondLookup(w, logger, err) {
			return
		}
		writeJSON(w, logger, http.StatusOK, c)
	}
}

// GetCalibrationFramesHandler returns the per-frame outcome of a stored run.
func GetCalibrationFramesHandler(repo repository.CalibrationRepository, frames repository.FrameRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			http.Error(w, "Invalid id", http.StatusBadRequest)
			return
		}
		if _, err := repo.GetByID(id); !respondLookup(w, logger, err) {
			return
		}
		rows, err := frames.GetByCalibrationID(id)
		if err != nil {
			logger.Error("Failed to load frames of calibration %d: %v", id, err)
			http.Error(w, "Failed to load frames", http.StatusInternalServerError)
			return
		}
		if rows == nil {
			rows = []model.CalibrationFrame{}
		}
		writeJSON(w, logger, http.StatusOK, rows)
	}
}

// DownloadArtifactHandler serves the saved artifact of a calibration.
func DownloadArtifactHandler(repo repository.CalibrationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			http.Error(w, "Invalid id", http.StatusBadRequest)
			return
		}
		c, err := repo.GetByID(id)
		if !respondLookup(w, logger, err) {
			return
		}
		if c.ArtifactPath == "" {
			http.Error(w, "Calibration has no artifact", http.StatusNotFound)
			return
		}
		if _, err := os.Stat(c.ArtifactPath); err != nil {
			http.Error(w, "Artifact file not found", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, c.ArtifactPath)
	}
}

// DeleteCalibrationHandler removes a calibration, its frames and its artifact file.
func DeleteCalibrationHandler(repo repository.CalibrationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id, ok := parseID(r)
		if !ok {
			http.Error(w, "Invalid id", http.StatusBadRequest)
			return
		}
		c, err := repo.GetByID(id)
		if !respondLookup(w, logger, err) {
			return
		}
		if err := repo.Delete(id); !respondLookup(w, logger, err) {
			return
		}
		if c.ArtifactPath != "" {
			if err := os.Remove(c.ArtifactPath); err != nil && !os.IsNotExist(err) {
				logger.Warning("Failed to remove artifact %s: %v", c.ArtifactPath, err)
			}
		}
		logger.Info("Deleted calibration %d", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// respondLookup writes an error response for a failed lookup and reports whether to continue.
func respondLookup(w http.ResponseWriter, logger *logger.Logger, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "Calibration not found", http.StatusNotFound)
	default:
		logger.Error("Calibration lookup failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
	return false
}
