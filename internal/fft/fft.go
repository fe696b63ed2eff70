// Package fft implements the in-place radix-2 complex FFT used by the
// phase vocoder. Samples are stored interleaved: the real part of point
// k at index 2k, the imaginary part at 2k+1.
package fft

import "math"

// Directions for Transform.
const (
	Forward = -1
	Inverse = 1
)

// Transform runs an in-place radix-2 Cooley-Tukey FFT over buf, which
// holds n complex points interleaved (len(buf) == 2n). n must be a
// power of two. sign selects the direction: Forward (-1) or Inverse
// (+1). The inverse transform is unnormalised; callers fold the 1/n
// factor into their own scaling.
func Transform(buf []float32, n int, sign int) {
	// Bit-reversal permutation.
	for i := 2; i < 2*n-2; i += 2 {
		j := 0

		for bitm := 2; bitm < 2*n; bitm <<= 1 {
			if i&bitm != 0 {
				j++
			}
			j <<= 1
		}

		if i < j {
			buf[i], buf[j] = buf[j], buf[i]
			buf[i+1], buf[j+1] = buf[j+1], buf[i+1]
		}
	}

	// Danielson-Lanczos butterflies.
	stages := int(math.Log2(float64(n)) + 0.5)

	le := 2
	for k := 0; k < stages; k++ {
		le <<= 1
		le2 := le >> 1

		ur, ui := 1.0, 0.0
		arg := math.Pi / float64(le2>>1)
		wr := math.Cos(arg)
		wi := float64(sign) * math.Sin(arg)

		for j := 0; j < le2; j += 2 {
			for i := j; i < 2*n; i += le {
				p1r, p1i := i, i+1
				p2r, p2i := i+le2, i+le2+1

				tr := float64(buf[p2r])*ur - float64(buf[p2i])*ui
				ti := float64(buf[p2r])*ui + float64(buf[p2i])*ur

				buf[p2r] = buf[p1r] - float32(tr)
				buf[p2i] = buf[p1i] - float32(ti)
				buf[p1r] += float32(tr)
				buf[p1i] += float32(ti)
			}

			ur, ui = ur*wr-ui*wi, ur*wi+ui*wr
		}
	}
}
