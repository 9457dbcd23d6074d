package library

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"slices"
)

// BaselineKey is the single library entry of a grid without synthesis
// dimensions.
const BaselineKey = "baseline"

// ConvolutionParams are the parameters the synthesis program can apply to an
// existing unconvolved spectrum.
var ConvolutionParams = []string{"vrot", "vmac_rt"}

// IsConvolution reports whether name is a convolution parameter.
func IsConvolution(name string) bool {
	return slices.Contains(ConvolutionParams, name)
}

// RotationalSplit partitions the grid dimensions. Both halves keep the order
// of the input.
type RotationalSplit struct {
	Convolution []string
	Synthesis   []string
}

// Split partitions names into convolution and synthesis parameters.
func Split(names []string) RotationalSplit {
	var s RotationalSplit
	for _, n := range names {
		if IsConvolution(n) {
			s.Convolution = append(s.Convolution, n)
		} else {
			s.Synthesis = append(s.Synthesis, n)
		}
	}
	return s
}

// Enabled reports whether a library is useful: at least one convolution
// parameter is swept.
func (s RotationalSplit) Enabled() bool {
	return len(s.Convolution) > 0
}

// Key returns the library key of the synthesis tuple values, where values[i]
// belongs to s.Synthesis[i].
func (s RotationalSplit) Key(values []float64) string {
	return Key(s.Synthesis, values)
}

// Key hashes names and values into a stable hex digest. No names yields
// BaselineKey.
func Key(names []string, values []float64) string {
	if len(names) == 0 {
		return BaselineKey
	}
	h := sha256.New()
	var buf [8]byte
	for i, n := range names {
		h.Write([]byte(n))
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(values[i]))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
