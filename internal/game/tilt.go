package game

// TiltState is the two-axis board inclination, the sole driver of ball
// acceleration. The host updates it once per frame before stepping the
// simulator; both angles stay clamped to the configured physical range.
type TiltState struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Rotate applies an incremental rotation, keeping both angles within
// [-maxTilt, maxTilt].
func (t *TiltState) Rotate(dPitch, dRoll, maxTilt float64) {
	t.Pitch = clamp(t.Pitch+dPitch, -maxTilt, maxTilt)
	t.Roll = clamp(t.Roll+dRoll, -maxTilt, maxTilt)
}

// Reset zeroes both angles.
func (t *TiltState) Reset() {
	*t = TiltState{}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
