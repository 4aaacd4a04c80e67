package artifact

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"charucocalib/internal/model"
)

const brownConrady = "brown_conrady"

type pinhole struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

type distortion struct {
	Type       string    `json:"type"`
	Parameters []float64 `json:"parameters"`
}

type jsonArtifact struct {
	Intrinsics   pinhole     `json:"intrinsic_parameters"`
	Distortion   distortion  `json:"distortion"`
	CameraMatrix [][]float64 `json:"camera_matrix"`
	DistCoeffs   []float64   `json:"dist_coeffs"`
	RMS          float64     `json:"rms"`
	ViewsUsed    int         `json:"views_used"`
}

func encodeJSON(intr model.Intrinsics) ([]byte, error) {
	rows := make([][]float64, 3)
	for r := range rows {
		rows[r] = mat.Row(nil, r, intr.CameraMatrix)
	}
	doc := jsonArtifact{
		Intrinsics: pinhole{
			Width:  intr.Width,
			Height: intr.Height,
			Fx:     intr.Fx(),
			Fy:     intr.Fy(),
			Ppx:    intr.Cx(),
			Ppy:    intr.Cy(),
		},
		Distortion:   distortion{Type: brownConrady, Parameters: intr.DistCoeffs},
		CameraMatrix: rows,
		DistCoeffs:   intr.DistCoeffs,
		RMS:          intr.RMS,
		ViewsUsed:    intr.ViewsUsed,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func decodeJSON(data []byte) (model.Intrinsics, error) {
	var doc jsonArtifact
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Intrinsics{}, fmt.Errorf("failed to parse calibration json: %w", err)
	}

	intr := model.Intrinsics{
		Width:     doc.Intrinsics.Width,
		Height:    doc.Intrinsics.Height,
		RMS:       doc.RMS,
		ViewsUsed: doc.ViewsUsed,
	}

	// the full matrix carries skew; files with only pinhole parameters are accepted too
	if len(doc.CameraMatrix) == 3 && len(doc.CameraMatrix[0]) == 3 && len(doc.CameraMatrix[1]) == 3 && len(doc.CameraMatrix[2]) == 3 {
		k := make([]float64, 0, 9)
		for _, row := range doc.CameraMatrix {
			k = append(k, row...)
		}
		intr.CameraMatrix = mat.NewDense(3, 3, k)
	} else {
		p := doc.Intrinsics
		if p.Fx <= 0 || p.Fy <= 0 {
			return model.Intrinsics{}, fmt.Errorf("calibration json has no camera matrix")
		}
		intr.CameraMatrix = model.NewCameraMatrix(p.Fx, p.Fy, p.Ppx, p.Ppy)
	}

	intr.DistCoeffs = doc.DistCoeffs
	if intr.DistCoeffs == nil {
		if doc.Distortion.Type != "" && doc.Distortion.Type != brownConrady {
			return model.Intrinsics{}, fmt.Errorf("unsupported distortion model %q", doc.Distortion.Type)
		}
		intr.DistCoeffs = doc.Distortion.Parameters
	}
	return intr, nil
}
