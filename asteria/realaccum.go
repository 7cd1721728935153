package asteria

import (
	"github.com/cockroachdb/apd/v3"
)

// realAccumulator is the "extended-precision real accumulation" facility
// called for by spec §4.1/§9. The C++ original accumulates numeric-literal
// digits in a `long double`; Go has no equivalent native type, so this
// accumulator uses an arbitrary-precision decimal (github.com/cockroachdb/apd/v3)
// instead, which is exact for every scaling this grammar can produce: a
// literal's significand is always a small integer, and both the fractional
// scale (base^-fracDigits) and the exponent scale (2^exp or 10^exp) are
// terminating decimals for base in {2, 10, 16} (16 = 2^4, and 1/2^n =
// 5^n/10^n). This gives exact "no spurious underflow" behavior on
// pathological inputs without hand-rolling extended-precision float math.
type realAccumulator struct {
	ctx        *apd.Context
	coeff      *apd.Decimal // accumulated significand digits, an exact non-negative integer
	base       int64
	fracDigits int64
	sawNonzero bool
}

func newRealAccumulator(base int64) *realAccumulator {
	ctx := apd.BaseContext.WithPrecision(80)
	return &realAccumulator{
		ctx:   ctx,
		coeff: apd.New(0, 0),
		base:  base,
	}
}

// AddDigit folds one more significand digit (integral part) into the accumulator.
func (r *realAccumulator) AddDigit(d int64) {
	if d != 0 {
		r.sawNonzero = true
	}
	scaled := new(apd.Decimal)
	r.ctx.Mul(scaled, r.coeff, apd.New(r.base, 0))
	r.ctx.Add(r.coeff, scaled, apd.New(d, 0))
}

// AddFracDigit folds one more fractional digit into the accumulator and
// records that the final scale must divide out one more power of base.
func (r *realAccumulator) AddFracDigit(d int64) {
	r.AddDigit(d)
	r.fracDigits++
}

// Finalize applies the fractional scale and the exponent (expBase^expSign*exp)
// and rounds to the nearest binary64. ok is false with a ParseErrorCode set
// when the result would round to an infinity that wasn't asked for, or to
// exact zero when the significand had a non-zero digit.
func (r *realAccumulator) Finalize(expBase, exp int64, expNegative bool) (float64, ParseErrorCode, bool) {
	value := new(apd.Decimal).Set(r.coeff)

	if r.fracDigits > 0 {
		divisor := new(apd.Decimal)
		r.ctx.Pow(divisor, apd.New(r.base, 0), apd.New(r.fracDigits, 0))
		r.ctx.Quo(value, value, divisor)
	}

	if exp != 0 {
		scale := new(apd.Decimal)
		e := exp
		if expNegative {
			e = -e
		}
		r.ctx.Pow(scale, apd.New(expBase, 0), apd.New(e, 0))
		r.ctx.Mul(value, value, scale)
	}

	f, err := value.Float64()
	if err != nil {
		// apd reports an error when the magnitude cannot be represented
		// even as +/-Inf in the requested precision; treat as overflow.
		return 0, ErrRealLiteralOverflow, false
	}

	if isInfFloat(f) {
		return 0, ErrRealLiteralOverflow, false
	}
	if f == 0 && r.sawNonzero {
		return 0, ErrRealLiteralUnderflow, false
	}
	return f, ErrSuccess, true
}

func isInfFloat(f float64) bool {
	return f > maxFiniteFloat64 || f < -maxFiniteFloat64
}

const maxFiniteFloat64 = 1.7976931348623157e+308
