package alignment

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"panostitch/pkg/geometry"
)

// computeHomographyFrom4 solves the 8x8 system obtained by fixing h22 = 1.
func computeHomographyFrom4(src, dst []geometry.Point2D) (geometry.Homography, error) {
	if len(src) != 4 || len(dst) != 4 {
		return geometry.Homography{}, errors.Errorf("need exactly 4 points, got %d", len(src))
	}

	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		// u = (h00 x + h01 y + h02) / (h20 x + h21 y + 1)
		A.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		b.SetVec(2*i, u)
		// v = (h10 x + h11 y + h12) / (h20 x + h21 y + 1)
		A.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return geometry.Homography{}, errors.Wrap(errDegenerate, err.Error())
	}
	H := geometry.Homography{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}
	if !finite(H) || math.Abs(H.Det()) < 1e-9 {
		return geometry.Homography{}, errDegenerate
	}
	return H, nil
}

// computeHomographyDLT fits a homography to n >= 4 pairs with the normalised
// direct linear transform: both point sets are moved to zero mean and mean
// distance sqrt(2), the 2n x 9 system is solved by SVD, and the result is
// denormalised.
func computeHomographyDLT(src, dst []geometry.Point2D) (geometry.Homography, error) {
	n := len(src)
	if n < 4 || len(dst) != n {
		return geometry.Homography{}, errors.Errorf("need at least 4 point pairs, got %d", n)
	}

	ts, ok := hartley(src)
	if !ok {
		return geometry.Homography{}, errDegenerate
	}
	td, ok := hartley(dst)
	if !ok {
		return geometry.Homography{}, errDegenerate
	}

	A := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		p, _ := ts.Apply(src[i])
		q, _ := td.Apply(dst[i])
		x, y, u, v := p.X, p.Y, q.X, q.Y

		A.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		A.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDFull) {
		return geometry.Homography{}, errors.Wrap(errDegenerate, "svd did not converge")
	}
	var V mat.Dense
	svd.VTo(&V)

	// Right singular vector of the smallest singular value.
	var hn geometry.Homography
	for k := 0; k < 9; k++ {
		hn[k/3][k%3] = V.At(k, 8)
	}

	tdInv, ok := td.Inverse()
	if !ok {
		return geometry.Homography{}, errDegenerate
	}
	H := tdInv.Mul(hn).Mul(ts)
	if math.Abs(H[2][2]) < 1e-12 {
		return geometry.Homography{}, errDegenerate
	}
	H = H.Normalize()
	if !finite(H) {
		return geometry.Homography{}, errDegenerate
	}
	return H, nil
}

// hartley returns the similarity moving pts to zero mean and mean distance
// sqrt(2) from the origin.
func hartley(pts []geometry.Point2D) (geometry.Homography, bool) {
	c := geometry.Centroid(pts)
	var mean float64
	for _, p := range pts {
		mean += p.Distance(c)
	}
	mean /= float64(len(pts))
	if mean < 1e-12 {
		return geometry.Homography{}, false
	}
	s := math.Sqrt2 / mean
	return geometry.Homography{
		{s, 0, -s * c.X},
		{0, s, -s * c.Y},
		{0, 0, 1},
	}, true
}

func finite(h geometry.Homography) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.IsNaN(h[i][j]) || math.IsInf(h[i][j], 0) {
				return false
			}
		}
	}
	return true
}
