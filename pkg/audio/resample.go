package audio

import "math"

// Resample converts a float frame between rates by linear interpolation.
// Good enough for speech; device rates rarely diverge from 16 kHz by much.
func Resample(input []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return input
	}

	ratio := float64(toRate) / float64(fromRate)
	outputLen := int(math.Ceil(float64(len(input)) * ratio))
	output := make([]float32, outputLen)

	for i := 0; i < len(output); i++ {
		srcPos := float64(i) / ratio
		srcIdx := int(srcPos)
		frac := float32(srcPos - float64(srcIdx))

		if srcIdx+1 < len(input) {
			output[i] = input[srcIdx]*(1-frac) + input[srcIdx+1]*frac
		} else if srcIdx < len(input) {
			output[i] = input[srcIdx]
		}
	}
	return output
}

// Int16ToFloat32 converts PCM16 samples to floats in [-1,1].
func Int16ToFloat32(samples []int16) []float32 {
	result := make([]float32, len(samples))
	for i, s := range samples {
		result[i] = float32(s) / 32768.0
	}
	return result
}

// Float32ToInt16 converts float samples to PCM16 with clamping.
func Float32ToInt16(samples []float32) []int16 {
	result := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		if s < 0 {
			result[i] = int16(s * 32768.0)
		} else {
			result[i] = int16(s * 32767.0)
		}
	}
	return result
}
