// Package xcorr provides the convolution and correlation primitives used by
// dense-mode template scoring: direct and FFT-based linear convolution for
// applying instrument line-spread and broadening kernels, plus dot-product
// and norm helpers for normalized cross-correlation.
//
// The Auto entry point selects direct convolution for short kernels and the
// FFT path otherwise, so callers never pick an algorithm by hand.
package xcorr

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Errors returned by convolution and correlation functions.
var (
	ErrEmptyInput  = errors.New("xcorr: empty input")
	ErrEmptyKernel = errors.New("xcorr: empty kernel")
	ErrZeroNorm    = errors.New("xcorr: zero-norm segment")
)

// directThreshold is the kernel length below which direct convolution beats
// the FFT path.
const directThreshold = 32

// Direct performs direct time-domain linear convolution of a and b.
// Returns a new slice of length len(a) + len(b) - 1.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	result := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			result[i+j] += av * bv
		}
	}
	return result, nil
}

// FFT performs linear convolution of a and b via zero-padded FFTs.
// Returns a new slice of length len(a) + len(b) - 1.
func FFT(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}
	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	n := len(a)
	m := len(b)
	fftSize := nextPowerOf2(n + m - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("xcorr: failed to create FFT plan: %w", err)
	}

	aPadded := make([]complex128, fftSize)
	bPadded := make([]complex128, fftSize)
	for i := 0; i < n; i++ {
		aPadded[i] = complex(a[i], 0)
	}
	for i := 0; i < m; i++ {
		bPadded[i] = complex(b[i], 0)
	}

	aFreq := make([]complex128, fftSize)
	bFreq := make([]complex128, fftSize)

	if err := plan.Forward(aFreq, aPadded); err != nil {
		return nil, fmt.Errorf("xcorr: forward FFT failed: %w", err)
	}
	if err := plan.Forward(bFreq, bPadded); err != nil {
		return nil, fmt.Errorf("xcorr: forward FFT failed: %w", err)
	}

	resultFreq := make([]complex128, fftSize)
	for i := range resultFreq {
		resultFreq[i] = aFreq[i] * bFreq[i]
	}

	resultTime := make([]complex128, fftSize)
	if err := plan.Inverse(resultTime, resultFreq); err != nil {
		return nil, fmt.Errorf("xcorr: inverse FFT failed: %w", err)
	}

	result := make([]float64, n+m-1)
	for i := range result {
		result[i] = real(resultTime[i])
	}
	return result, nil
}

// Auto convolves a and b, selecting the direct path for short kernels and
// the FFT path otherwise.
func Auto(a, b []float64) ([]float64, error) {
	if len(b) < directThreshold {
		return Direct(a, b)
	}
	return FFT(a, b)
}

// ConvolveSame convolves a with kernel and trims the result to len(a),
// center-aligned, so a spectrum segment keeps its axis after kernel
// application.
func ConvolveSame(a, kernel []float64) ([]float64, error) {
	full, err := Auto(a, kernel)
	if err != nil {
		return nil, err
	}

	start := (len(kernel) - 1) / 2
	return full[start : start+len(a)], nil
}

// Dot returns the dot product of a and b over their common length.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// L2Norm computes the Euclidean norm of x.
func L2Norm(x []float64) float64 {
	return math.Sqrt(Dot(x, x))
}

// NormalizedDot returns the cosine similarity dot(a,b)/(|a|·|b|), bounded in
// [-1,1]. Returns ErrZeroNorm when either vector has zero norm.
func NormalizedDot(a, b []float64) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyInput
	}

	normProduct := L2Norm(a) * L2Norm(b)
	if normProduct == 0 {
		return 0, ErrZeroNorm
	}

	c := Dot(a, b) / normProduct
	if c > 1 {
		c = 1
	}
	if c < -1 {
		c = -1
	}
	return c, nil
}

func nextPowerOf2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
