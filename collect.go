package parmap

import "fmt"

// OutputSpec describes the target shape a call's results are coerced
// into. It is chosen by the map variant, never by the caller directly,
// and appears in [*TypeMismatchError] to name the shape a value failed
// to fit.
type OutputSpec int

const (
	// AnyContainer assembles results as-is, without coercion.
	AnyContainer OutputSpec = iota

	// NumericVector requires every value to be coercible to float64.
	NumericVector

	// IntegerVector requires every value to be losslessly coercible to int.
	IntegerVector

	// CharacterVector requires every value to be a string scalar.
	CharacterVector

	// LogicalVector requires every value to be a bool scalar.
	LogicalVector

	// MirroredContainer copies the original input, overwriting only the
	// selected positions with their transformed values.
	MirroredContainer
)

func (s OutputSpec) String() string {
	switch s {
	case AnyContainer:
		return "AnyContainer"
	case NumericVector:
		return "NumericVector"
	case IntegerVector:
		return "IntegerVector"
	case CharacterVector:
		return "CharacterVector"
	case LogicalVector:
		return "LogicalVector"
	case MirroredContainer:
		return "MirroredContainer"
	default:
		return fmt.Sprintf("OutputSpec(%d)", int(s))
	}
}

// toFloat64 coerces numeric scalars to float64. Strings and bools do not
// coerce; a numeric target never silently absorbs other type families.
func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// toInt coerces integer scalars to int. Floats coerce only when the
// value is integral and survives the round trip.
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		if uint64(x) > uint64(maxInt) {
			return 0, false
		}
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		if x > uint64(maxInt) {
			return 0, false
		}
		return int(x), true
	case float64:
		if float64(int(x)) == x {
			return int(x), true
		}
		return 0, false
	case float32:
		if float32(int(x)) == x {
			return int(x), true
		}
		return 0, false
	default:
		return 0, false
	}
}

const maxInt = int(^uint(0) >> 1)

// toString accepts string scalars and fmt.Stringer implementations.
// Numbers and bools do not coerce.
func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}

// toBool accepts bool scalars only.
func toBool(v any) (bool, bool) {
	x, ok := v.(bool)
	return x, ok
}
