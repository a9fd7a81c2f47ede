package softwaremixer

import "math"

// DefaultMinDB and DefaultMaxDB are the gain-control bounds this backend
// reports, in the same spirit as a javax.sound FloatControl range.
const (
	DefaultMinDB = -80.0
	DefaultMaxDB = 6.0
)

// LinearToDB reproduces spec.md §4.1's gain-control mapping from a linear
// gain in [0,1] to a dB value in [min, max]. The derivation is the original
// library's (see ChannelJavaSound.setGain in the Java source this spec was
// distilled from); spec.md flags it as an undocumented curve and asks for a
// literal port rather than a "corrected" one.
func LinearToDB(g, min, max float64) float64 {
	ampGainDB := 0.5*max - min
	c := math.Log(10) / 20
	return min + (1/c)*math.Log(1+(math.Exp(c*ampGainDB)-1)*g)
}
