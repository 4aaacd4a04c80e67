package source

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func TestOpenVideo_MissingPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mp4")

	v, err := OpenVideo(path)
	if err == nil {
		v.Close()
		t.Fatal("expected error for missing video")
	}
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestOpen_ReturnsNilInterfaceOnError(t *testing.T) {
	src, err := Open(filepath.Join(t.TempDir(), "missing.mp4"))
	if err == nil {
		t.Fatal("expected error")
	}
	if src != nil {
		t.Error("expected a nil Source so callers can compare against nil")
	}
}

func TestOpenVideo_Directory(t *testing.T) {
	_, err := OpenVideo(t.TempDir())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable for a directory, got %v", err)
	}
}

const (
	clipWidth  = 64
	clipHeight = 48
	clipFrames = 5
)

// writeClip encodes a short solid-colour clip, skipping the test when no encoder is available.
func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.avi")

	writer, err := gocv.VideoWriterFile(path, "MJPG", 10, clipWidth, clipHeight, true)
	if err != nil {
		t.Skipf("no video encoder available: %v", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		t.Skip("no MJPG encoder available")
	}

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 120, 200, 0), clipHeight, clipWidth, gocv.MatTypeCV8UC3)
	defer img.Close()
	for i := 0; i < clipFrames; i++ {
		if err := writer.Write(img); err != nil {
			writer.Close()
			t.Fatalf("Failed to write frame %d: %v", i, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	return path
}

func TestVideo_ReadToEndAndClose(t *testing.T) {
	v, err := OpenVideo(writeClip(t))
	if err != nil {
		t.Fatalf("Failed to open clip: %v", err)
	}

	frames := 0
	for v.Next() {
		f := v.Frame()
		if f.Index != frames {
			t.Errorf("frame %d reported index %d", frames, f.Index)
		}
		if f.Width != clipWidth || f.Height != clipHeight {
			t.Errorf("frame %d is %dx%d", frames, f.Width, f.Height)
		}
		frames++
	}
	if frames != clipFrames {
		t.Errorf("expected %d frames, read %d", clipFrames, frames)
	}
	if err := v.Err(); err != nil {
		t.Errorf("expected clean end of stream, got %v", err)
	}
	if v.Next() {
		t.Error("Next returned true after the end of stream")
	}
	if got := v.Size(); got != image.Pt(clipWidth, clipHeight) {
		t.Errorf("expected size %dx%d, got %v", clipWidth, clipHeight, got)
	}

	if err := v.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if v.Releases() != 1 {
		t.Errorf("expected the handle released once, got %d", v.Releases())
	}
	if v.Next() {
		t.Error("Next returned true after Close")
	}
	if !errors.Is(v.Err(), ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", v.Err())
	}
}

func TestVideo_CloseBeforeEnd(t *testing.T) {
	v, err := OpenVideo(writeClip(t))
	if err != nil {
		t.Fatalf("Failed to open clip: %v", err)
	}
	if !v.Next() {
		t.Fatalf("expected a first frame, err %v", v.Err())
	}

	v.Close()
	if v.Next() {
		t.Error("Next returned true after Close")
	}
	if !errors.Is(v.Err(), ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", v.Err())
	}
	if v.Releases() != 1 {
		t.Errorf("expected the handle released once, got %d", v.Releases())
	}
}

func TestVideo_SizeFallsBackToFirstFrame(t *testing.T) {
	v, err := OpenVideo(writeClip(t))
	if err != nil {
		t.Fatalf("Failed to open clip: %v", err)
	}
	defer v.Close()

	// as if the container reported no dimensions
	v.size = image.Point{}
	if !v.Next() {
		t.Fatalf("expected a first frame, err %v", v.Err())
	}
	if got := v.Size(); got != image.Pt(clipWidth, clipHeight) {
		t.Errorf("expected size from the first frame %dx%d, got %v", clipWidth, clipHeight, got)
	}
}
