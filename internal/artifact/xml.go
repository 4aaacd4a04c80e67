package artifact

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"charucocalib/internal/model"
)

const opencvMatrixType = "opencv-matrix"

type storage struct {
	XMLName      xml.Name `xml:"opencv_storage"`
	ImageWidth   int      `xml:"image_width"`
	ImageHeight  int      `xml:"image_height"`
	RMS          float64  `xml:"rms"`
	ViewsUsed    int      `xml:"views_used"`
	CameraMatrix matrix   `xml:"camera_matrix"`
	DistCoeffs   matrix   `xml:"dist_coeffs"`
}

// matrix is a FileStorage opencv-matrix node with double elements.
type matrix struct {
	TypeID string `xml:"type_id,attr"`
	Rows   int    `xml:"rows"`
	Cols   int    `xml:"cols"`
	Dt     string `xml:"dt"`
	Data   string `xml:"data"`
}

func newMatrix(rows, cols int, values []float64) matrix {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return matrix{
		TypeID: opencvMatrixType,
		Rows:   rows,
		Cols:   cols,
		Dt:     "d",
		Data:   strings.Join(parts, " "),
	}
}

func (m matrix) values() ([]float64, error) {
	fields := strings.Fields(m.Data)
	if len(fields) != m.Rows*m.Cols {
		return nil, fmt.Errorf("matrix declares %dx%d but holds %d values", m.Rows, m.Cols, len(fields))
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad matrix element %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

func encodeXML(intr model.Intrinsics) ([]byte, error) {
	doc := storage{
		ImageWidth:   intr.Width,
		ImageHeight:  intr.Height,
		RMS:          intr.RMS,
		ViewsUsed:    intr.ViewsUsed,
		CameraMatrix: newMatrix(3, 3, denseValues(intr.CameraMatrix)),
		DistCoeffs:   newMatrix(1, len(intr.DistCoeffs), intr.DistCoeffs),
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	out := append([]byte("<?xml version=\"1.0\"?>\n"), body...)
	return append(out, '\n'), nil
}

func decodeXML(data []byte) (model.Intrinsics, error) {
	var doc storage
	if err := xml.Unmarshal(data, &doc); err != nil {
		return model.Intrinsics{}, fmt.Errorf("failed to parse calibration xml: %w", err)
	}
	if doc.CameraMatrix.Rows != 3 || doc.CameraMatrix.Cols != 3 {
		return model.Intrinsics{}, fmt.Errorf("camera matrix must be 3x3, got %dx%d", doc.CameraMatrix.Rows, doc.CameraMatrix.Cols)
	}
	k, err := doc.CameraMatrix.values()
	if err != nil {
		return model.Intrinsics{}, fmt.Errorf("camera_matrix: %w", err)
	}
	dist, err := doc.DistCoeffs.values()
	if err != nil {
		return model.Intrinsics{}, fmt.Errorf("dist_coeffs: %w", err)
	}
	return model.Intrinsics{
		Width:        doc.ImageWidth,
		Height:       doc.ImageHeight,
		CameraMatrix: mat.NewDense(3, 3, k),
		DistCoeffs:   dist,
		RMS:          doc.RMS,
		ViewsUsed:    doc.ViewsUsed,
	}, nil
}

func denseValues(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
