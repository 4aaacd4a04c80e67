// CalibrationsData is a paginated response payload for the calibration history.
package dto

type CalibrationsData struct {
	Calibrations []CalibrationInfo `json:"calibrations"`
	Length       int               `json:"length"`
	TotalPages   int               `json:"totalPages"`
	CurrentPage  int               `json:"currentPage"`
	Limit        int               `json:"pageSize"`
}
