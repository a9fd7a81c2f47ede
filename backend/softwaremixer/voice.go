package softwaremixer

import (
	"math"
	"sync"
)

// voiceState is one pool slot's internal playback state. The engine never
// sees this type; it only holds the *backend.Voice handle.
type voiceState struct {
	mu sync.Mutex

	created bool
	playing bool
	paused  bool

	// One-shot playback.
	data []byte
	pos  int

	// Streaming playback: a queue of PCM chunks fed by streampump.
	queue           [][]byte
	chunkPos        int
	processedUnread int

	gain float32
	pan  float32
}

func (v *voiceState) reset() {
	v.data = nil
	v.pos = 0
	v.queue = nil
	v.chunkPos = 0
	v.processedUnread = 0
	v.playing = false
	v.paused = false
}

// leftRightGain applies an equal-power pan law to the voice's linear gain.
func (v *voiceState) leftRightGain() (left, right float32) {
	// pan in [-1,1] maps to theta in [0, pi/2]
	theta := float64(v.pan+1) * 0.25 * math.Pi
	l := float32(math.Cos(theta))
	r := float32(math.Sin(theta))
	return v.gain * l, v.gain * r
}
