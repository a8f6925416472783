package tracker

import (
	"gonum.org/v1/gonum/mat"
)

// Noise parameters of the constant velocity model, in pixels and frames.
const (
	measurementNoise  = 4.0
	processNoise      = 0.1
	positionVariance  = 10.0
	velocityVariance  = 1.0
	kalmanStateLength = 4
)

// kalmanFilter tracks a centroid with state [x y vx vy] and a time step of one frame.
type kalmanFilter struct {
	x *mat.VecDense
	p *mat.Dense
	f *mat.Dense
	q *mat.Dense
	h *mat.Dense
	r *mat.Dense
}

func newKalmanFilter(x, y float64) *kalmanFilter {
	f := mat.NewDense(4, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	// discrete white noise acceleration
	q := mat.NewDense(4, 4, []float64{
		0.25, 0, 0.5, 0,
		0, 0.25, 0, 0.5,
		0.5, 0, 1, 0,
		0, 0.5, 0, 1,
	})
	q.Scale(processNoise, q)
	h := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
	r := mat.NewDense(2, 2, []float64{
		measurementNoise, 0,
		0, measurementNoise,
	})
	p := mat.NewDense(4, 4, []float64{
		positionVariance, 0, 0, 0,
		0, positionVariance, 0, 0,
		0, 0, velocityVariance, 0,
		0, 0, 0, velocityVariance,
	})
	return &kalmanFilter{
		x: mat.NewVecDense(kalmanStateLength, []float64{x, y, 0, 0}),
		p: p,
		f: f,
		q: q,
		h: h,
		r: r,
	}
}

// predict advances the state one frame.
func (kf *kalmanFilter) predict() {
	var x mat.VecDense
	x.MulVec(kf.f, kf.x)
	kf.x = &x

	var fp, p mat.Dense
	fp.Mul(kf.f, kf.p)
	p.Mul(&fp, kf.f.T())
	p.Add(&p, kf.q)
	kf.p = &p
}

// update corrects the state with a measured position. A singular innovation
// covariance leaves the state untouched.
func (kf *kalmanFilter) update(zx, zy float64) {
	var hx mat.VecDense
	hx.MulVec(kf.h, kf.x)
	y := mat.NewVecDense(2, []float64{zx - hx.AtVec(0), zy - hx.AtVec(1)})

	var hp, s mat.Dense
	hp.Mul(kf.h, kf.p)
	s.Mul(&hp, kf.h.T())
	s.Add(&s, kf.r)
	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return
	}

	var pht, k mat.Dense
	pht.Mul(kf.p, kf.h.T())
	k.Mul(&pht, &sInv)

	var ky, x mat.VecDense
	ky.MulVec(&k, y)
	x.AddVec(kf.x, &ky)
	kf.x = &x

	var kh, ikh, p mat.Dense
	kh.Mul(&k, kf.h)
	ikh.Sub(eye(kalmanStateLength), &kh)
	p.Mul(&ikh, kf.p)
	kf.p = &p
}

func (kf *kalmanFilter) position() (float64, float64) {
	return kf.x.AtVec(0), kf.x.AtVec(1)
}

func (kf *kalmanFilter) velocity() (float64, float64) {
	return kf.x.AtVec(2), kf.x.AtVec(3)
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
