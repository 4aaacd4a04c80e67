package calibration

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"charucocalib/internal/artifact"
	"charucocalib/internal/model"
)

var number = regexp.MustCompile(`-?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?`)

// reportedValues extracts the numbers printed in the report between two headings.
func reportedValues(t *testing.T, out, from, to string) []float64 {
	t.Helper()
	start := strings.Index(out, from)
	end := strings.Index(out, to)
	if start < 0 || end < start {
		t.Fatalf("report has no section %q:\n%s", from, out)
	}
	var vals []float64
	for _, s := range number.FindAllString(out[start+len(from):end], -1) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatalf("Failed to parse %q: %v", s, err)
		}
		vals = append(vals, v)
	}
	return vals
}

func TestReport_MatchesSavedArtifact(t *testing.T) {
	intr := model.Intrinsics{
		Width:        1920,
		Height:       1080,
		CameraMatrix: model.NewCameraMatrix(1234.56789012345, 1230.000000123, 959.123456789, 541.987654321),
		DistCoeffs:   []float64{0.123456789012, -0.0987654321098, 1.23456789e-05, -7.6543e-07, 0.000112233445566},
		RMS:          0.4321,
		ViewsUsed:    14,
	}
	res := &model.Result{Success: true, Policy: PolicyMinCorners, FramesTotal: 20, FramesAccepted: 14, Intrinsics: intr}

	var buf bytes.Buffer
	Report(&buf, res, nil)
	out := buf.String()

	for _, format := range []artifact.Format{artifact.FormatXML, artifact.FormatJSON} {
		path := filepath.Join(t.TempDir(), "calibration."+string(format))
		if err := artifact.Save(path, format, intr); err != nil {
			t.Fatalf("Failed to save %s artifact: %v", format, err)
		}
		loaded, err := artifact.Load(path)
		if err != nil {
			t.Fatalf("Failed to load %s artifact: %v", format, err)
		}

		printedMatrix := reportedValues(t, out, "Camera matrix:", "Distortion coefficients:")
		if diff := cmp.Diff(loaded.CameraMatrix.RawMatrix().Data, printedMatrix); diff != "" {
			t.Errorf("%s: printed camera matrix differs from artifact (-loaded +printed):\n%s", format, diff)
		}
		printedCoeffs := reportedValues(t, out, "Distortion coefficients:", "Image size")
		if diff := cmp.Diff(loaded.DistCoeffs, printedCoeffs); diff != "" {
			t.Errorf("%s: printed coefficients differ from artifact (-loaded +printed):\n%s", format, diff)
		}
	}
}
