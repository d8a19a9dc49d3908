package alignment

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"panostitch/pkg/geometry"
)

var errDegenerate = errors.New("degenerate sample")

// computeTranslation returns the mean displacement src -> dst.
func computeTranslation(src, dst []geometry.Point2D) geometry.AffineTransform {
	var tx, ty float64
	for i := range src {
		tx += dst[i].X - src[i].X
		ty += dst[i].Y - src[i].Y
	}
	n := float64(len(src))
	return geometry.Translation(tx/n, ty/n)
}

// computeRigidFrom2 computes a rigid transform (rotation + translation) from 2 point pairs.
func computeRigidFrom2(s0, s1, d0, d1 geometry.Point2D) (geometry.AffineTransform, error) {
	sx, sy := s1.X-s0.X, s1.Y-s0.Y
	dx, dy := d1.X-d0.X, d1.Y-d0.Y

	srcLen := math.Sqrt(sx*sx + sy*sy)
	dstLen := math.Sqrt(dx*dx + dy*dy)
	if srcLen < 0.001 || dstLen < 0.001 {
		return geometry.AffineTransform{}, errDegenerate
	}

	theta := math.Atan2(dy, dx) - math.Atan2(sy, sx)
	cosT := math.Cos(theta)
	sinT := math.Sin(theta)

	// d0 = R * s0 + t  =>  t = d0 - R * s0
	tx := d0.X - (cosT*s0.X - sinT*s0.Y)
	ty := d0.Y - (sinT*s0.X + cosT*s0.Y)

	return geometry.AffineTransform{
		A: cosT, B: -sinT, TX: tx,
		C: sinT, D: cosT, TY: ty,
	}, nil
}

// computeRigidLeastSquares computes the best rigid transform (rotation + translation)
// from N point pairs using the centred cross/dot product method.
func computeRigidLeastSquares(src, dst []geometry.Point2D) geometry.AffineTransform {
	sc := geometry.Centroid(src)
	dc := geometry.Centroid(dst)

	var dotSum, crossSum float64
	for i := range src {
		sx, sy := src[i].X-sc.X, src[i].Y-sc.Y
		dx, dy := dst[i].X-dc.X, dst[i].Y-dc.Y
		dotSum += sx*dx + sy*dy
		crossSum += sx*dy - sy*dx
	}

	theta := math.Atan2(crossSum, dotSum)
	cosT := math.Cos(theta)
	sinT := math.Sin(theta)

	return geometry.AffineTransform{
		A: cosT, B: -sinT, TX: dc.X - (cosT*sc.X - sinT*sc.Y),
		C: sinT, D: cosT, TY: dc.Y - (sinT*sc.X + cosT*sc.Y),
	}
}

// computeSimilarityFrom2 treats the point pairs as complex numbers:
// d1-d0 = (a+ib)(s1-s0).
func computeSimilarityFrom2(s0, s1, d0, d1 geometry.Point2D) (geometry.AffineTransform, error) {
	sx, sy := s1.X-s0.X, s1.Y-s0.Y
	dx, dy := d1.X-d0.X, d1.Y-d0.Y

	n := sx*sx + sy*sy
	if n < 1e-6 || dx*dx+dy*dy < 1e-6 {
		return geometry.AffineTransform{}, errDegenerate
	}
	a := (sx*dx + sy*dy) / n
	b := (sx*dy - sy*dx) / n

	return geometry.AffineTransform{
		A: a, B: -b, TX: d0.X - (a*s0.X - b*s0.Y),
		C: b, D: a, TY: d0.Y - (b*s0.X + a*s0.Y),
	}, nil
}

// computeSimilarityLeastSquares fits rotation, uniform scale and translation
// to N point pairs.
func computeSimilarityLeastSquares(src, dst []geometry.Point2D) (geometry.AffineTransform, error) {
	sc := geometry.Centroid(src)
	dc := geometry.Centroid(dst)

	var dotSum, crossSum, norm float64
	for i := range src {
		sx, sy := src[i].X-sc.X, src[i].Y-sc.Y
		dx, dy := dst[i].X-dc.X, dst[i].Y-dc.Y
		dotSum += sx*dx + sy*dy
		crossSum += sx*dy - sy*dx
		norm += sx*sx + sy*sy
	}
	if norm < 1e-9 {
		return geometry.AffineTransform{}, errDegenerate
	}
	a, b := dotSum/norm, crossSum/norm

	return geometry.AffineTransform{
		A: a, B: -b, TX: dc.X - (a*sc.X - b*sc.Y),
		C: b, D: a, TY: dc.Y - (b*sc.X + a*sc.Y),
	}, nil
}

// computeAffineFromPoints computes an affine transform from exactly 3 point pairs.
func computeAffineFromPoints(src, dst []geometry.Point2D) (geometry.AffineTransform, error) {
	if len(src) != 3 || len(dst) != 3 {
		return geometry.AffineTransform{}, errors.Errorf("need exactly 3 points, got %d", len(src))
	}

	// [x', y'] = [a, b, tx; c, d, ty] * [x, y, 1]
	A := mat.NewDense(6, 6, nil)
	B := mat.NewVecDense(6, nil)

	for i := 0; i < 3; i++ {
		x, y := src[i].X, src[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, dst[i].X)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, dst[i].Y)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return geometry.AffineTransform{}, errors.Wrap(errDegenerate, err.Error())
	}

	return affineFromParams(&params), nil
}

// computeAffineLeastSquares computes an affine transform using least squares.
func computeAffineLeastSquares(src, dst []geometry.Point2D) (geometry.AffineTransform, error) {
	n := len(src)
	if n < 3 {
		return geometry.AffineTransform{}, errors.Errorf("need at least 3 points, got %d", n)
	}

	A := mat.NewDense(n*2, 6, nil)
	B := mat.NewVecDense(n*2, nil)

	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		B.SetVec(i*2, dst[i].X)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		B.SetVec(i*2+1, dst[i].Y)
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, err
	}

	return affineFromParams(&params), nil
}

func affineFromParams(params *mat.VecDense) geometry.AffineTransform {
	return geometry.AffineTransform{
		A:  params.AtVec(0),
		B:  params.AtVec(1),
		TX: params.AtVec(2),
		C:  params.AtVec(3),
		D:  params.AtVec(4),
		TY: params.AtVec(5),
	}
}

// MeanError returns the mean reprojection distance of src through h against
// dst. Points mapping to infinity count as +Inf.
func MeanError(src, dst []geometry.Point2D, h geometry.Homography) float64 {
	if len(src) != len(dst) || len(src) == 0 {
		return math.Inf(1)
	}

	var total float64
	for i := range src {
		p, ok := h.Apply(src[i])
		if !ok {
			return math.Inf(1)
		}
		total += p.Distance(dst[i])
	}
	return total / float64(len(src))
}
