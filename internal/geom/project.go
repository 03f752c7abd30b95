package geom

import "fmt"

type projectOptions struct {
	fn       func(float64) float64
	fnDomain Interval
	fnRange  Interval
	bound    bool
}

// ProjectOption configures Project.
type ProjectOption func(*projectOptions)

// WithFunc maps values through fn, which is defined on fnDomain and must
// produce values in fnRange.
func WithFunc(fn func(float64) float64, fnDomain, fnRange Interval) ProjectOption {
	return func(o *projectOptions) {
		o.fn = fn
		o.fnDomain = fnDomain
		o.fnRange = fnRange
	}
}

// WithBound clamps values outside the domain to its closest value instead of
// failing.
func WithBound() ProjectOption {
	return func(o *projectOptions) {
		o.bound = true
	}
}

// Project maps v from domain onto rng.
//
// v is first rescaled onto the function's domain, passed through the
// function, and the result is rescaled from the function's range onto rng.
// With no options the function is the identity on [0, 1] and the mapping is
// linear. A degenerate domain maps every value to rng.Low.
func Project(v float64, domain, rng Interval, opts ...ProjectOption) (float64, error) {
	o := projectOptions{
		fn:       func(x float64) float64 { return x },
		fnDomain: Unit,
		fnRange:  Unit,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !domain.Contains(v) {
		if !o.bound {
			return 0, fmt.Errorf("%w: %g not in domain %s", ErrOutOfRange, v, domain)
		}
		c, err := domain.Closest(v)
		if err != nil {
			return 0, err
		}
		v = c
	}

	var inScale float64
	if domain.Size() != 0 {
		inScale = (v - domain.Low) / domain.Size()
	}

	out := o.fn(o.fnDomain.Low + inScale*o.fnDomain.Size())
	if !o.fnRange.Contains(out) {
		return 0, fmt.Errorf("%w: function output %g not in %s", ErrOutOfRange, out, o.fnRange)
	}

	var outScale float64
	if o.fnRange.Size() != 0 {
		outScale = (out - o.fnRange.Low) / o.fnRange.Size()
	}

	return rng.Low + outScale*rng.Size(), nil
}
