// Package artifact saves and loads calibration results. The XML form is an OpenCV
// FileStorage document that cv::FileStorage can read directly; the JSON form carries
// pinhole intrinsics and Brown-Conrady distortion parameters.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"charucocalib/internal/model"
)

// ErrUnknownFormat is returned for format names or file contents that are not recognised.
var ErrUnknownFormat = errors.New("unknown artifact format")

// DefaultPath is where the operator tool writes its artifact.
const DefaultPath = "calibration.xml"

type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// ParseFormat resolves a format name. An empty name selects XML.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatXML:
		return FormatXML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath picks the format matching the file extension, falling back to XML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatXML
}

// Save writes intr to path in the given format. The file is replaced atomically so a
// reader never sees a partial artifact.
func Save(path string, format Format, intr model.Intrinsics) error {
	if intr.CameraMatrix == nil {
		return errors.New("cannot save calibration without a camera matrix")
	}

	var data []byte
	var err error
	switch format {
	case FormatXML:
		data, err = encodeXML(intr)
	case FormatJSON:
		data, err = encodeJSON(intr)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}
	return writeAtomic(path, data)
}

// Load reads an artifact written by Save, detecting its format from the contents.
func Load(path string) (model.Intrinsics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Intrinsics{}, fmt.Errorf("failed to read calibration %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return decodeXML(trimmed)
	case bytes.HasPrefix(trimmed, []byte("{")):
		return decodeJSON(trimmed)
	default:
		return model.Intrinsics{}, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(tmp.Name()))
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return multierr.Combine(fmt.Errorf("failed to write calibration: %w", err), tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return multierr.Combine(fmt.Errorf("failed to sync calibration: %w", err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close calibration: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move calibration into place: %w", err)
	}
	return nil
}
