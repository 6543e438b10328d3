package audio

import "encoding/binary"

// EncodeWAV wraps little-endian int16 mono PCM in a minimal RIFF/WAVE
// container. This is the format handed to recognition providers; none of the
// targeted services need anything beyond a canonical 44-byte PCM header.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		headerSize    = 44
		numChannels   = 1
		bitsPerSample = 16
	)
	dataSize := len(pcm)
	out := make([]byte, headerSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], numChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(sampleRate*numChannels*bitsPerSample/8))
	binary.LittleEndian.PutUint16(out[32:34], numChannels*bitsPerSample/8)
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))
	copy(out[44:], pcm)

	return out
}
