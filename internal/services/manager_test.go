package services

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang/geo/r2"
	"go.uber.org/goleak"

	"charucocalib/internal/artifact"
	"charucocalib/internal/board"
	"charucocalib/internal/calibration"
	"charucocalib/internal/config"
	"charucocalib/internal/dto"
	"charucocalib/internal/logger"
	"charucocalib/internal/model"
	"charucocalib/internal/repository/sqlite"
	"charucocalib/internal/source"
)

// the database is closed in t.Cleanup, after the leak check runs
var ignoreDB = goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")

// ========================================
// Fakes
// ========================================

type stubSource struct {
	frames int
	index  int
}

func (s *stubSource) Size() image.Point { return image.Pt(640, 480) }
func (s *stubSource) FrameCount() int   { return s.frames }
func (s *stubSource) Frame() source.Frame {
	return source.Frame{Index: s.index, Width: 640, Height: 480}
}
func (s *stubSource) Err() error   { return nil }
func (s *stubSource) Close() error { return nil }
func (s *stubSource) Next() bool {
	if s.index+1 >= s.frames {
		return false
	}
	s.index++
	return true
}

type stubDetector struct{}

func (stubDetector) Detect(frame source.Frame) (model.Observation, bool, error) {
	obs := model.Observation{Frame: frame.Index}
	for i := 0; i < 10; i++ {
		obs.IDs = append(obs.IDs, i)
		obs.Corners = append(obs.Corners, r2.Point{X: float64(i), Y: float64(frame.Index)})
	}
	return obs, true, nil
}

type stubSolver struct {
	started chan struct{}
	release chan struct{}
}

func (s *stubSolver) Calibrate(obs []model.Observation, spec board.Spec, size image.Point) (model.Intrinsics, error) {
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	return model.Intrinsics{
		Width:        size.X,
		Height:       size.Y,
		CameraMatrix: model.NewCameraMatrix(800, 800, 320, 240),
		DistCoeffs:   []float64{0, 0, 0, 0, 0},
		RMS:          0.25,
		ViewsUsed:    len(obs),
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.ProgressEvent
}

func (p *recordingPublisher) Publish(ev dto.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) ofType(typ string) []dto.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []dto.ProgressEvent
	for _, ev := range p.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	manager      *Manager
	calibrations *sqlite.CalibrationRepository
	frames       *sqlite.FrameRepository
	publisher    *recordingPublisher
	artifactDir  string
}

func newFixture(t *testing.T, solver calibration.Solver, queueSize int) *fixture {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.New(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pipeline := calibration.New(calibration.Options{
		Board: board.Default(),
		Open: func(path string) (source.Source, error) {
			if path == "missing.mp4" {
				return nil, source.ErrSourceUnavailable
			}
			return &stubSource{frames: 5, index: -1}, nil
		},
		Detector: stubDetector{},
		Solver:   solver,
	})

	f := &fixture{
		calibrations: sqlite.NewCalibrationRepository(db),
		frames:       sqlite.NewFrameRepository(db),
		publisher:    &recordingPublisher{},
		artifactDir:  filepath.Join(dir, "artifacts"),
	}
	cfg := &config.Config{ArtifactDir: f.artifactDir, OutputFormat: "json", QueueSize: queueSize}
	f.manager, err = NewManager(pipeline, f.calibrations, f.frames, f.publisher, cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return f
}

// ========================================
// Manager Tests
// ========================================

func TestManager_SuccessfulJob(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreDB)

	f := newFixture(t, &stubSolver{}, 4)
	jobID, err := f.manager.Submit("lab/cam.mp4")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	f.manager.Stop()

	finished := f.publisher.ofType(dto.EventFinished)
	if len(finished) != 1 {
		t.Fatalf("expected one finished event, got %d", len(finished))
	}
	ev := finished[0]
	if !ev.Success || ev.JobID != jobID || ev.CalibrationID == 0 || ev.RMS != 0.25 {
		t.Errorf("unexpected finished event %+v", ev)
	}
	if frames := f.publisher.ofType(dto.EventFrame); len(frames) != 5 {
		t.Errorf("expected 5 frame events, got %d", len(frames))
	}

	stored, err := f.calibrations.GetByID(ev.CalibrationID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !stored.Success || stored.FramesAccepted != 5 || stored.Fx != 800 {
		t.Errorf("unexpected stored calibration %+v", stored)
	}

	intr, err := artifact.Load(stored.ArtifactPath)
	if err != nil {
		t.Fatalf("artifact not readable: %v", err)
	}
	if intr.Fx() != 800 {
		t.Errorf("artifact fx = %v", intr.Fx())
	}

	frames, err := f.frames.GetByCalibrationID(ev.CalibrationID)
	if err != nil {
		t.Fatalf("GetByCalibrationID failed: %v", err)
	}
	if len(frames) != 5 {
		t.Errorf("expected 5 stored frames, got %d", len(frames))
	}
}

func TestManager_FailedJobIsRecorded(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreDB)

	f := newFixture(t, &stubSolver{}, 4)
	if _, err := f.manager.Submit("missing.mp4"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	f.manager.Stop()

	finished := f.publisher.ofType(dto.EventFinished)
	if len(finished) != 1 || finished[0].Success || finished[0].Error == "" {
		t.Fatalf("expected a failed finished event, got %+v", finished)
	}

	stored, err := f.calibrations.GetByID(finished[0].CalibrationID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Success || stored.ArtifactPath != "" || stored.Error == "" {
		t.Errorf("failed run stored incorrectly: %+v", stored)
	}

	entries, _ := os.ReadDir(f.artifactDir)
	if len(entries) != 0 {
		t.Errorf("failed run must not leave an artifact, found %d files", len(entries))
	}
}

func TestManager_QueueFull(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreDB)

	solver := &stubSolver{started: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, solver, 1)

	if _, err := f.manager.Submit("first.mp4"); err != nil {
		t.Fatalf("Submit first failed: %v", err)
	}
	<-solver.started // worker is busy with the first job

	if _, err := f.manager.Submit("second.mp4"); err != nil {
		t.Fatalf("Submit second failed: %v", err)
	}
	if _, err := f.manager.Submit("third.mp4"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if f.manager.Pending() != 1 {
		t.Errorf("expected 1 pending job, got %d", f.manager.Pending())
	}

	solver.release <- struct{}{}
	<-solver.started
	solver.release <- struct{}{}
	f.manager.Stop()

	if n := len(f.publisher.ofType(dto.EventFinished)); n != 2 {
		t.Errorf("expected 2 finished jobs, got %d", n)
	}
}

func TestManager_SubmitAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreDB)

	f := newFixture(t, &stubSolver{}, 2)
	f.manager.Stop()
	f.manager.Stop()

	if _, err := f.manager.Submit("late.mp4"); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
}

func TestNewManager_RejectsUnknownFormat(t *testing.T) {
	_, err := NewManager(nil, nil, nil, nil, &config.Config{OutputFormat: "yaml"}, logger.NewNop())
	if !errors.Is(err, artifact.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}
