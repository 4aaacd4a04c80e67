package calibration

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"charucocalib/internal/model"
)

// Report prints the outcome of a run for an operator.
func Report(w io.Writer, res *model.Result, err error) {
	if err != nil || res == nil || !res.Success {
		fmt.Fprintln(w, "Calibration failed.")
		if err != nil {
			fmt.Fprintf(w, "Reason: %v\n", err)
		}
		if res != nil {
			fmt.Fprintf(w, "Frames read: %d, accepted: %d (policy %s)\n", res.FramesTotal, res.FramesAccepted, res.Policy)
		}
		return
	}

	intr := res.Intrinsics
	fmt.Fprintln(w, "Calibration successful!")
	if intr.CameraMatrix != nil {
		fmt.Fprintf(w, "Camera matrix:\n%v\n", mat.Formatted(intr.CameraMatrix, mat.Prefix(" "), mat.Squeeze()))
	}
	fmt.Fprintf(w, "Distortion coefficients:\n %s\n", formatCoeffs(intr.DistCoeffs))
	fmt.Fprintf(w, "Image size: %dx%d\n", intr.Width, intr.Height)
	fmt.Fprintf(w, "RMS reprojection error: %.4f px\n", intr.RMS)
	fmt.Fprintf(w, "Frames read: %d, accepted: %d (policy %s), views used: %d\n",
		res.FramesTotal, res.FramesAccepted, res.Policy, intr.ViewsUsed)
	cs := res.CornerStats
	fmt.Fprintf(w, "Corners per accepted frame: mean %.1f, median %.1f, min %.0f, max %.0f\n",
		cs.Mean, cs.Median, cs.Min, cs.Max)
}

func formatCoeffs(coeffs []float64) string {
	parts := make([]string, len(coeffs))
	for i, c := range coeffs {
		parts[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
