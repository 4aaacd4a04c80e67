// CalibrationFilter describes user-provided filters to narrow the calibration history.
package dto

type CalibrationFilter struct {
	Success *bool  // nil matches both outcomes
	Video   string // substring of the video path
	Limit   int
	Offset  int
}
