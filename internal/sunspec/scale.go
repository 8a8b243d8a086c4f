package sunspec

import "math"

// Resolve applies a power-of-ten scale factor to a raw register value.
// Negative exponents round the result to that many decimal places so
// 123 * 10^-2 reports 1.23 rather than 1.2300000000000002. A result that
// overflows float64 is absent.
func Resolve(raw, exponent Value) Value {
	if raw.IsAbsent() || exponent.IsAbsent() || !raw.IsNumeric() {
		return raw
	}
	exp, ok := exponent.Int64()
	if !ok {
		return raw
	}

	// integers stay integral when nothing is divided away
	if exp >= 0 {
		switch raw.Kind() {
		case Int:
			if scaled, ok := scaleInt(raw.i, exp); ok {
				return IntValue(scaled)
			}
		case Uint:
			if scaled, ok := scaleUint(raw.u, exp); ok {
				return UintValue(scaled)
			}
		}
	}

	f, _ := raw.Float64()
	scaled := f * math.Pow10(int(exp))
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return Value{}
	}
	if exp < 0 {
		scaled = round(scaled, int(-exp))
	}
	return FloatValue(scaled)
}

func round(f float64, places int) float64 {
	p := math.Pow10(places)
	r := math.Round(f*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return f
	}
	return r
}

func scaleInt(n, exp int64) (int64, bool) {
	for i := int64(0); i < exp; i++ {
		if n > math.MaxInt64/10 || n < math.MinInt64/10 {
			return 0, false
		}
		n *= 10
	}
	return n, true
}

func scaleUint(n uint64, exp int64) (uint64, bool) {
	for i := int64(0); i < exp; i++ {
		if n > math.MaxUint64/10 {
			return 0, false
		}
		n *= 10
	}
	return n, true
}
