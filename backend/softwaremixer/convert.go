package softwaremixer

import "encoding/binary"

// monoToStereo16 duplicates each mono 16-bit sample into an interleaved
// stereo buffer, the same upmix policy as the teacher's hand-rolled
// monoToStereo() in pkg/audiodevice/device/audioformatconversiondevice.go
// (there over float32 PCMFrames, here over raw little-endian bytes).
func monoToStereo16(data []byte) []byte {
	n := len(data) / 2
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		sample := data[i*2 : i*2+2]
		copy(out[i*4:i*4+2], sample)
		copy(out[i*4+2:i*4+4], sample)
	}
	return out
}

// stereoToMono16 averages interleaved stereo 16-bit samples down to mono,
// mirroring the teacher's stereoToMono().
func stereoToMono16(data []byte) []byte {
	frames := len(data) / 4
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		l := int16(binary.LittleEndian.Uint16(data[i*4 : i*4+2]))
		r := int16(binary.LittleEndian.Uint16(data[i*4+2 : i*4+4]))
		avg := int16((int32(l) + int32(r)) / 2)
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(avg))
	}
	return out
}

// adaptChannels converts 16-bit PCM from srcChannels to dstChannels. Other
// bit depths are passed through unconverted (the decoder registry only
// produces 8-bit for exotic sources, which this backend does not attempt to
// remix — a documented limitation, not a silent truncation of the 16-bit
// common case).
func adaptChannels(data []byte, srcChannels, dstChannels, bitsPerSample int) []byte {
	if srcChannels == dstChannels || bitsPerSample != 16 {
		return data
	}
	if srcChannels == 1 && dstChannels == 2 {
		return monoToStereo16(data)
	}
	if srcChannels == 2 && dstChannels == 1 {
		return stereoToMono16(data)
	}
	return data
}
