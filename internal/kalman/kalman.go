// Package kalman smooths a 2-D position with a constant-velocity Kalman filter.
package kalman

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ayusman/mudra/internal/geom"
)

// Params holds the filter noise settings.
type Params struct {
	// MeasurementNoise is the diagonal of the measurement covariance R.
	MeasurementNoise float64
	// ProcessNoise is the diagonal of the process covariance Q.
	ProcessNoise float64
	// InitialError is the diagonal of the initial error covariance P.
	InitialError float64
}

// DefaultParams returns the noise settings used for cursor smoothing.
func DefaultParams() Params {
	return Params{
		MeasurementNoise: 0.3,
		ProcessNoise:     1e-4,
		InitialError:     0.1,
	}
}

// Filter tracks state [x, y, vx, vy] from position measurements [x, y].
// It is not safe for concurrent use.
type Filter struct {
	params Params

	f *mat.Dense // transition
	h *mat.Dense // measurement
	q *mat.Dense
	r *mat.Dense

	x *mat.VecDense // state
	p *mat.Dense    // error covariance
}

// New returns a filter at rest at the origin.
func New(params Params) *Filter {
	k := &Filter{
		params: params,
		f: mat.NewDense(4, 4, []float64{
			1, 0, 1, 0,
			0, 1, 0, 1,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
		h: mat.NewDense(2, 4, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
		}),
		q: scaledIdentity(4, params.ProcessNoise),
		r: scaledIdentity(2, params.MeasurementNoise),
	}
	k.Reset()
	return k
}

// Reset returns the filter to its initial state.
func (k *Filter) Reset() {
	k.x = mat.NewVecDense(4, nil)
	k.p = scaledIdentity(4, k.params.InitialError)
}

// Predict advances the state one step and returns the predicted position.
func (k *Filter) Predict() geom.Vec {
	var x mat.VecDense
	x.MulVec(k.f, k.x)
	k.x = &x

	// P = F P Fᵀ + Q
	var fp, p mat.Dense
	fp.Mul(k.f, k.p)
	p.Mul(&fp, k.f.T())
	p.Add(&p, k.q)
	k.p = &p

	return k.Position()
}

// Correct folds the measured position z into the state and returns the
// corrected position. If the innovation covariance cannot be inverted the
// state is left unchanged.
func (k *Filter) Correct(z geom.Vec) geom.Vec {
	// S = H P Hᵀ + R
	var hp, s mat.Dense
	hp.Mul(k.h, k.p)
	s.Mul(&hp, k.h.T())
	s.Add(&s, k.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return k.Position()
	}

	// K = P Hᵀ S⁻¹
	var pht, gain mat.Dense
	pht.Mul(k.p, k.h.T())
	gain.Mul(&pht, &sInv)

	// x = x + K (z - H x)
	var hx, innov mat.VecDense
	hx.MulVec(k.h, k.x)
	innov.SubVec(mat.NewVecDense(2, []float64{z.X, z.Y}), &hx)

	var dx, x mat.VecDense
	dx.MulVec(&gain, &innov)
	x.AddVec(k.x, &dx)
	k.x = &x

	// P = (I - K H) P
	var kh, ikh, p mat.Dense
	kh.Mul(&gain, k.h)
	ikh.Sub(identity(4), &kh)
	p.Mul(&ikh, k.p)
	k.p = &p

	return k.Position()
}

// Position returns the current position estimate.
func (k *Filter) Position() geom.Vec {
	return geom.Vec{X: k.x.AtVec(0), Y: k.x.AtVec(1)}
}

// Velocity returns the current velocity estimate, in units per step.
func (k *Filter) Velocity() geom.Vec {
	return geom.Vec{X: k.x.AtVec(2), Y: k.x.AtVec(3)}
}

func identity(n int) *mat.Dense {
	return scaledIdentity(n, 1)
}

func scaledIdentity(n int, v float64) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, v)
	}
	return d
}
