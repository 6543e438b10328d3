package audio

// Amplify multiplies every int16 sample in pcm by gain, clamping to the
// int16 range. A gain of 1.0 returns a copy with identical samples.
func Amplify(pcm []byte, gain float64) []byte {
	out := make([]byte, len(pcm)&^1)
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(pcm[i]) | int16(pcm[i+1])<<8)
		v := clampInt16(s * gain)
		out[i] = byte(v)
		out[i+1] = byte(v >> 8)
	}
	return out
}

// NormalizePeak scales pcm so that its loudest sample reaches peak of the
// int16 range (0 < peak ≤ 1). Silence (all-zero input) is returned unchanged;
// so is audio whose peak already exceeds the target, to avoid attenuating
// speech below what the recognizer was tuned for.
func NormalizePeak(pcm []byte, peak float64) []byte {
	if peak <= 0 || peak > 1 {
		peak = 1
	}
	var maxAbs int32
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int32(int16(pcm[i]) | int16(pcm[i+1])<<8)
		if s < 0 {
			s = -s
		}
		if s > maxAbs {
			maxAbs = s
		}
	}
	target := peak * 32767
	if maxAbs == 0 || float64(maxAbs) >= target {
		return pcm
	}
	return Amplify(pcm, target/float64(maxAbs))
}

func clampInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
