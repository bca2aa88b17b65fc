package media

import (
	"bytes"
	"encoding/binary"
)

const wavHeaderSize = 44

// EncodePCM16WAV encodes mono signed 16-bit little-endian PCM frames into
// an in-memory WAV file: canonical 44-byte RIFF header followed by the raw
// sample data. Pure transform, no validation of the sample rate.
func EncodePCM16WAV(samples []int16, sampleRate int) []byte {
	const channels = 1
	const bitsPerSample = 16
	const blockAlign = channels * bitsPerSample / 8

	dataSize := len(samples) * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataSize))

	// binary.Write to a bytes.Buffer cannot fail
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*blockAlign)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// PCM16Frames converts request integers to int16 frames. Out-of-range
// values wrap, matching a fixed-width PCM cast.
func PCM16Frames(values []int64) []int16 {
	frames := make([]int16, len(values))
	for i, v := range values {
		frames[i] = int16(v)
	}
	return frames
}
