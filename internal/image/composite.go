package image

// Accumulator collects weighted pixel contributions from several source
// images onto one canvas. Each canvas pixel holds a running weighted sum per
// channel and a total weight; Resolve divides them out in a final pass.
//
// Add is safe for concurrent use as long as concurrent callers write
// disjoint pixels (for example, disjoint rows).
type Accumulator struct {
	Width    int
	Height   int
	Channels int

	sums    []float64
	weights []float64
}

// NewAccumulator allocates an empty accumulation canvas.
func NewAccumulator(width, height, channels int) *Accumulator {
	return &Accumulator{
		Width:    width,
		Height:   height,
		Channels: channels,
		sums:     make([]float64, width*height*channels),
		weights:  make([]float64, width*height),
	}
}

// Add blends one contribution into pixel (x, y). vals holds Channels values.
func (a *Accumulator) Add(x, y int, vals []float64, weight float64) {
	if weight <= 0 {
		return
	}
	i := y*a.Width + x
	a.weights[i] += weight
	base := i * a.Channels
	for c := 0; c < a.Channels; c++ {
		a.sums[base+c] += vals[c] * weight
	}
}

// Resolve normalises the weighted sums. The returned mask is true for every
// pixel that received at least one contribution; uncovered pixels are zero.
func (a *Accumulator) Resolve() (*Image, []bool) {
	out := New(a.Width, a.Height, a.Channels)
	mask := make([]bool, a.Width*a.Height)
	for i, w := range a.weights {
		if w <= 0 {
			continue
		}
		mask[i] = true
		base := i * a.Channels
		for c := 0; c < a.Channels; c++ {
			out.Pix[base+c] = float32(a.sums[base+c] / w)
		}
	}
	return out, mask
}
