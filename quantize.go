package morphpack

import "math"

// PositionPrecision returns the quantization step size for position deltas
// given a positional error tolerance in centimeters. The factor of 2 accounts
// for the worst-case rounding error being half a quantization cell.
func PositionPrecision(toleranceCm float32) float32 {
	return toleranceCm * 2e-6 * 100
}

// TangentPrecision returns the fixed quantization step size for tangent-space
// normal deltas.
func TangentPrecision() float32 {
	return 1.0 / 2048.0
}

// Quantize converts a vertex delta to fixed point. Position components are
// clamped to the 28-bit signed range, tangent components to the 16-bit signed
// range. Vertices whose needsTangent flag is false get a zero tangent
// regardless of the input.
func Quantize(d VertexDelta, needsTangent bool, posPrecision, tanPrecision float32) QuantizedDelta {
	q := QuantizedDelta{Index: d.SourceIndex}
	for i := range 3 {
		q.Position[i] = quantizeComponent(d.PositionDelta[i], posPrecision,
			quantizedPositionMin, quantizedPositionMax)
		if needsTangent {
			q.TangentZ[i] = quantizeComponent(d.TangentZDelta[i], tanPrecision,
				quantizedTangentMin, quantizedTangentMax)
		}
	}
	return q
}

// Dequantize is the exact linear inverse of Quantize, up to the information
// lost to rounding. The tangent is forced to zero when hasTangents is false.
func Dequantize(q QuantizedDelta, hasTangents bool, posPrecision, tanPrecision float32) VertexDelta {
	d := VertexDelta{SourceIndex: q.Index}
	for i := range 3 {
		d.PositionDelta[i] = float32(q.Position[i]) * posPrecision
		if hasTangents {
			d.TangentZDelta[i] = float32(q.TangentZ[i]) * tanPrecision
		}
	}
	return d
}

// quantizeComponent maps one float component to its fixed-point value:
// round(clamp(v/precision, lo, hi)). Clamping happens before rounding so the
// result is always within [lo, hi].
func quantizeComponent(v, precision float32, lo, hi int32) int32 {
	scaled := float64(v) / float64(precision)
	if scaled < float64(lo) {
		scaled = float64(lo)
	} else if scaled > float64(hi) {
		scaled = float64(hi)
	}
	return int32(math.Round(scaled))
}
