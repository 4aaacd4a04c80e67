package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"charucocalib/internal/dto"
	"charucocalib/internal/logger"
	"charucocalib/internal/model"
	"charucocalib/internal/repository"
	"charucocalib/internal/repository/sqlite"
	"charucocalib/internal/services"
)

// ========================================
// Helpers
// ========================================

type stubSubmitter struct {
	videos []string
	err    error
}

func (s *stubSubmitter) Submit(video string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.videos = append(s.videos, video)
	return "job-1", nil
}

type testEnv struct {
	dir          string
	calibrations repository.CalibrationRepository
	frames       repository.FrameRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &testEnv{
		dir:          dir,
		calibrations: sqlite.NewCalibrationRepository(db),
		frames:       sqlite.NewFrameRepository(db),
	}
}

func (e *testEnv) insert(t *testing.T, success bool, artifactPath string) int64 {
	t.Helper()
	c := model.Calibration{
		VideoPath:      "data/1_calibration.mp4",
		SquaresX:       7,
		SquaresY:       5,
		SquareLength:   0.03,
		MarkerLength:   0.015,
		Dictionary:     "DICT_6X6_250",
		Policy:         "min-corners",
		FramesTotal:    10,
		FramesAccepted: 4,
		Success:        success,
		ArtifactPath:   artifactPath,
		CreatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if success {
		c.Width, c.Height = 640, 480
		c.RMS, c.Fx, c.Fy, c.Cx, c.Cy = 0.3, 800, 800, 320, 240
		c.DistCoeffs = []float64{0.1, -0.2, 0, 0, 0.05}
	} else {
		c.Error = "no observations"
	}
	id, err := e.calibrations.Insert(&c)
	if err != nil {
		t.Fatalf("Failed to insert calibration: %v", err)
	}
	return id
}

// ========================================
// Submit
// ========================================

func TestSubmitCalibrationHandler(t *testing.T) {
	video := filepath.Join(t.TempDir(), "cam.mp4")
	if err := os.WriteFile(video, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create video: %v", err)
	}

	tests := []struct {
		name        string
		body        string
		contentType string
		submitErr   error
		wantCode    int
	}{
		{"json body", `{"video":"` + video + `"}`, "application/json", nil, http.StatusAccepted},
		{"form body", "video=" + video, "application/x-www-form-urlencoded", nil, http.StatusAccepted},
		{"missing video", `{}`, "application/json", nil, http.StatusBadRequest},
		{"nonexistent video", `{"video":"nope.mp4"}`, "application/json", nil, http.StatusBadRequest},
		{"malformed json", `{"video":`, "application/json", nil, http.StatusBadRequest},
		{"queue full", `{"video":"` + video + `"}`, "application/json", services.ErrQueueFull, http.StatusServiceUnavailable},
		{"stopped", `{"video":"` + video + `"}`, "application/json", services.ErrStopped, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitter := &stubSubmitter{err: tt.submitErr}
			handler := SubmitCalibrationHandler(submitter, logger.NewNop())

			req := httptest.NewRequest(http.MethodPost, "/api/calibrations", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			handler(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			if tt.wantCode != http.StatusAccepted {
				return
			}
			var resp dto.SubmitResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.JobID != "job-1" {
				t.Errorf("expected job id job-1, got %q", resp.JobID)
			}
			if len(submitter.videos) != 1 || submitter.videos[0] != video {
				t.Errorf("expected %s submitted, got %v", video, submitter.videos)
			}
		})
	}
}

func TestCalibrationsHandler_MethodNotAllowed(t *testing.T) {
	env := setupTestEnv(t)
	handler := CalibrationsHandler(&stubSubmitter{}, env.calibrations, logger.NewNop())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPut, "/api/calibrations", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

// ========================================
// Read
// ========================================

func TestListCalibrationsHandler(t *testing.T) {
	env := setupTestEnv(t)
	for i := 0; i < 3; i++ {
		env.insert(t, true, "")
	}
	env.insert(t, false, "")

	handler := CalibrationsHandler(&stubSubmitter{}, env.calibrations, logger.NewNop())

	tests := []struct {
		query     string
		wantLen   int
		wantTotal int
		wantPages int
	}{
		{"", 4, 4, 1},
		{"?success=true", 3, 3, 1},
		{"?success=false", 1, 1, 1},
		{"?limit=2", 2, 4, 2},
		{"?limit=2&page=2", 2, 4, 2},
		{"?video=nothing", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}

			var data struct {
				Calibrations []map[string]interface{} `json:"calibrations"`
				Length       int                      `json:"length"`
				TotalPages   int                      `json:"totalPages"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&data); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(data.Calibrations) != tt.wantLen {
				t.Errorf("expected %d calibrations, got %d", tt.wantLen, len(data.Calibrations))
			}
			if data.Length != tt.wantTotal {
				t.Errorf("expected total %d, got %d", tt.wantTotal, data.Length)
			}
			if data.TotalPages != tt.wantPages {
				t.Errorf("expected %d pages, got %d", tt.wantPages, data.TotalPages)
			}
		})
	}
}

func TestGetCalibrationHandler(t *testing.T) {
	env := setupTestEnv(t)
	id := env.insert(t, true, "")
	handler := GetCalibrationHandler(env.calibrations, logger.NewNop())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/get?id="+itoa(id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var c model.Calibration
	if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if c.ID != id || c.Fx != 800 || len(c.DistCoeffs) != 5 {
		t.Errorf("unexpected calibration: %+v", c)
	}

	for query, want := range map[string]int{
		"?id=99":  http.StatusNotFound,
		"?id=abc": http.StatusBadRequest,
		"":        http.StatusBadRequest,
	} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/get"+query, nil))
		if rec.Code != want {
			t.Errorf("query %q: expected %d, got %d", query, want, rec.Code)
		}
	}
}

func TestLatestCalibrationHandler(t *testing.T) {
	env := setupTestEnv(t)
	handler := LatestCalibrationHandler(env.calibrations, logger.NewNop())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/latest", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on empty history, got %d", rec.Code)
	}

	id := env.insert(t, true, "")
	env.insert(t, false, "")

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/latest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var c model.Calibration
	if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if c.ID != id {
		t.Errorf("expected latest successful id %d, got %d", id, c.ID)
	}
}

func TestGetCalibrationFramesHandler(t *testing.T) {
	env := setupTestEnv(t)
	id := env.insert(t, true, "")
	frames := []model.CalibrationFrame{
		{FrameIndex: 0, Corners: 0},
		{FrameIndex: 1, Corners: 12, Accepted: true},
	}
	if err := env.frames.InsertBatch(id, frames); err != nil {
		t.Fatalf("Failed to insert frames: %v", err)
	}
	empty := env.insert(t, false, "")

	handler := GetCalibrationFramesHandler(env.calibrations, env.frames, logger.NewNop())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/frames?id="+itoa(id), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []model.CalibrationFrame
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(got) != 2 || !got[1].Accepted || got[1].Corners != 12 {
		t.Errorf("unexpected frames: %+v", got)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/frames?id="+itoa(empty), nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/frames?id=42", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// ========================================
// Artifact and delete
// ========================================

func TestDownloadArtifactHandler(t *testing.T) {
	env := setupTestEnv(t)
	path := filepath.Join(env.dir, "calibration.xml")
	if err := os.WriteFile(path, []byte("<opencv_storage/>"), 0644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}
	withFile := env.insert(t, true, path)
	withoutFile := env.insert(t, false, "")
	gone := env.insert(t, true, filepath.Join(env.dir, "gone.xml"))

	handler := DownloadArtifactHandler(env.calibrations, logger.NewNop())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/artifact?id="+itoa(withFile), nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "<opencv_storage/>" {
		t.Errorf("expected artifact content, got %d %q", rec.Code, rec.Body.String())
	}

	for _, id := range []int64{withoutFile, gone} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/artifact?id="+itoa(id), nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("id %d: expected 404, got %d", id, rec.Code)
		}
	}
}

func TestDeleteCalibrationHandler(t *testing.T) {
	env := setupTestEnv(t)
	path := filepath.Join(env.dir, "calibration.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}
	id := env.insert(t, true, path)

	handler := DeleteCalibrationHandler(env.calibrations, logger.NewNop())

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/calibrations/delete?id="+itoa(id), nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/api/calibrations/delete?id="+itoa(id), nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, err := env.calibrations.GetByID(id); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected calibration removed, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected artifact removed, stat returned %v", err)
	}

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodDelete, "/api/calibrations/delete?id="+itoa(id), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}
