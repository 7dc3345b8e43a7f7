package table

// Column kind inference. Sources parse everything they can into float64;
// the design matrix builder asks these helpers whether a column can be
// treated as numeric or must be expanded as a categorical factor.

// IsNumericValue reports whether a scalar carries a usable numeric value.
// Strings are not numeric here even when they parse: a column of "01",
// "02" codes must stay categorical unless the source coerced it.
func IsNumericValue(v any) bool {
	switch v.(type) {
	case float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		bool:
		return true
	default:
		return false
	}
}

// IsNumericColumn reports whether every non-nil value in the column is
// numeric. A column of only nils is not numeric.
func IsNumericColumn(values []any) bool {
	numeric := false
	for _, v := range values {
		if v == nil {
			continue
		}
		if !IsNumericValue(v) {
			return false
		}
		numeric = true
	}
	return numeric
}

// FloatColumn coerces a column to float64, with ok=false and the first
// offending row index when any non-nil value resists coercion.
// nil values coerce to 0.
func FloatColumn(values []any) ([]float64, int, bool) {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		f, ok := AsFloat(v)
		if !ok {
			return nil, i, false
		}
		out[i] = f
	}
	return out, -1, true
}
