package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"charucocalib/internal/artifact"
	"charucocalib/internal/calibration"
	"charucocalib/internal/config"
	"charucocalib/internal/dto"
	"charucocalib/internal/logger"
	"charucocalib/internal/model"
	"charucocalib/internal/repository"
)

var (
	// ErrQueueFull is returned by Submit when the job queue has no free slot.
	ErrQueueFull = errors.New("calibration queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("calibration manager stopped")
)

// Publisher receives progress events, typically the websocket hub.
type Publisher interface {
	Publish(ev dto.ProgressEvent)
}

type CalibrationTask struct {
	JobID string
	Video string
}

// Manager runs submitted calibrations one at a time on a single worker, saves artifacts
// of successful runs and records every run in the history.
type Manager struct {
	pipeline     *calibration.Pipeline
	calibrations repository.CalibrationRepository
	frames       repository.FrameRepository
	publisher    Publisher
	logger       *logger.Logger

	artifactDir string
	format      artifact.Format

	queue   chan CalibrationTask
	seq     atomic.Uint64
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewManager(pipeline *calibration.Pipeline, calibrations repository.CalibrationRepository, frames repository.FrameRepository, publisher Publisher, cfg *config.Config, logger *logger.Logger) (*Manager, error) {
	format, err := artifact.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		pipeline:     pipeline,
		calibrations: calibrations,
		frames:       frames,
		publisher:    publisher,
		logger:       logger,
		artifactDir:  cfg.ArtifactDir,
		format:       format,
		queue:        make(chan CalibrationTask, size),
		ctx:          ctx,
		cancel:       cancel,
	}

	m.wg.Add(1)
	go m.worker()

	m.logger.Info("Calibration manager started, queue size %d", size)
	return m, nil
}

// Submit queues a calibration of the video and returns its job id.
func (m *Manager) Submit(video string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.stopped {
		return "", ErrStopped
	}

	task := CalibrationTask{
		JobID: fmt.Sprintf("%s-%d", time.Now().Format("20060102-150405"), m.seq.Add(1)),
		Video: video,
	}
	select {
	case m.queue <- task:
		m.logger.Info("Calibration %s queued for %s", task.JobID, video)
		m.publish(dto.ProgressEvent{Type: dto.EventQueued, JobID: task.JobID, Video: video})
		return task.JobID, nil
	default:
		m.logger.Warning("Calibration queue full, rejecting %s", video)
		return "", ErrQueueFull
	}
}

// Pending returns the number of queued jobs not yet started.
func (m *Manager) Pending() int {
	return len(m.queue)
}

func (m *Manager) worker() {
	defer m.wg.Done()

	for task := range m.queue {
		m.process(task)
	}
}

func (m *Manager) process(task CalibrationTask) {
	m.publish(dto.ProgressEvent{Type: dto.EventStarted, JobID: task.JobID, Video: task.Video})

	observer := calibration.ObserverFunc(func(ev model.FrameEvent) {
		m.publish(dto.ProgressEvent{Type: dto.EventFrame, JobID: task.JobID, Frame: &ev})
	})
	res, err := m.pipeline.WithObserver(observer).Run(m.ctx, task.Video)

	var artifactPath string
	if err == nil {
		artifactPath = filepath.Join(m.artifactDir, fmt.Sprintf("calibration_%s.%s", task.JobID, m.format))
		if saveErr := artifact.Save(artifactPath, m.format, res.Intrinsics); saveErr != nil {
			m.logger.Error("Failed to save calibration %s: %v", task.JobID, saveErr)
			artifactPath = ""
			err = saveErr
		}
	}

	finished := dto.ProgressEvent{Type: dto.EventFinished, JobID: task.JobID, Video: task.Video}
	if err != nil {
		m.logger.Error("Calibration %s failed: %v", task.JobID, err)
		finished.Error = err.Error()
	} else {
		m.logger.Info("Calibration %s finished, RMS %.4f px, saved to %s", task.JobID, res.Intrinsics.RMS, artifactPath)
		finished.Success = true
		finished.RMS = res.Intrinsics.RMS
	}

	if id, recErr := m.record(res, artifactPath, err); recErr != nil {
		m.logger.Error("Failed to record calibration %s: %v", task.JobID, recErr)
	} else {
		finished.CalibrationID = id
	}
	m.publish(finished)
}

// record stores the run and its frames in the history.
func (m *Manager) record(res *model.Result, artifactPath string, runErr error) (int64, error) {
	if m.calibrations == nil {
		return 0, nil
	}
	c := model.NewCalibration(res, artifactPath, runErr)
	id, err := m.calibrations.Insert(&c)
	if err != nil {
		return 0, err
	}
	if m.frames != nil && len(res.Frames) > 0 {
		if err := m.frames.InsertBatch(id, res.CalibrationFrames()); err != nil {
			return id, err
		}
	}
	return id, nil
}

func (m *Manager) publish(ev dto.ProgressEvent) {
	if m.publisher != nil {
		m.publisher.Publish(ev)
	}
}

// Stop rejects new jobs, lets queued ones finish and waits for the worker.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
	m.cancel()
	m.logger.Info("Calibration manager stopped")
}

// Abort cancels the running job and stops the manager.
func (m *Manager) Abort() {
	m.cancel()
	m.Stop()
}
