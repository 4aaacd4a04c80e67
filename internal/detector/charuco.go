package detector

import (
	"github.com/golang/geo/r2"

	"charucocalib/internal/board"
	"charucocalib/internal/model"
)

// Interpolate estimates the image position of every chessboard corner whose neighbouring
// markers were detected. Each detected board marker contributes a local homography from
// the board plane to the image; a corner is the mean of its estimates from the adjacent
// markers. Corners backed by fewer than minMarkers markers are dropped, as are marker ids
// that do not belong to the board. The result is ordered by corner id.
func Interpolate(spec board.Spec, det Detection, minMarkers int) model.Observation {
	if minMarkers < 1 {
		minMarkers = 1
	}

	local := make(map[int]Homography, det.Len())
	for i, id := range det.IDs {
		if i >= len(det.Corners) || !spec.HasMarkerID(id) {
			continue
		}
		if _, seen := local[id]; seen {
			continue
		}
		obj, err := spec.MarkerCorners(id)
		if err != nil {
			continue
		}
		var src [4]r2.Point
		for k, p := range obj {
			src[k] = r2.Point{X: p.X, Y: p.Y}
		}
		h, err := EstimateHomography(src, det.Corners[i])
		if err != nil {
			continue
		}
		local[id] = h
	}

	var obs model.Observation
	if len(local) == 0 {
		return obs
	}

	for cid := 0; cid < spec.CornerCount(); cid++ {
		near, err := spec.NearestMarkers(cid)
		if err != nil {
			continue
		}
		pos, err := spec.CornerPosition(cid)
		if err != nil {
			continue
		}
		plane := r2.Point{X: pos.X, Y: pos.Y}

		var sum r2.Point
		n := 0
		for _, mid := range near {
			h, ok := local[mid]
			if !ok {
				continue
			}
			sum = sum.Add(h.Apply(plane))
			n++
		}
		if n < minMarkers {
			continue
		}
		obs.Corners = append(obs.Corners, sum.Mul(1/float64(n)))
		obs.IDs = append(obs.IDs, cid)
	}
	return obs
}

// cropToBounds drops corners that fall outside a width x height image.
func cropToBounds(obs model.Observation, width, height int) model.Observation {
	out := model.Observation{Frame: obs.Frame}
	for i, p := range obs.Corners {
		if p.X < 0 || p.Y < 0 || p.X > float64(width-1) || p.Y > float64(height-1) {
			continue
		}
		out.Corners = append(out.Corners, p)
		out.IDs = append(out.IDs, obs.IDs[i])
	}
	return out
}
