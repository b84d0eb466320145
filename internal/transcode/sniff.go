package transcode

import "encoding/binary"

// sniff inspects the magic bytes of an audio payload and returns the
// container name plus the PCM bit depth where the container records one
// (0 for compressed/lossy formats or when the header is too short).
func sniff(data []byte) (container string, bitDepth int) {
	switch {
	case len(data) >= 4 && string(data[:4]) == "fLaC":
		return "flac", flacBitDepth(data)
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav", wavBitDepth(data)
	case len(data) >= 12 && string(data[:4]) == "FORM" && string(data[8:12]) == "AIFF":
		return "aiff", aiffBitDepth(data)
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		return "m4a", 0
	case len(data) >= 4 && string(data[:4]) == "OggS":
		return "ogg", 0
	case len(data) >= 3 && string(data[:3]) == "ID3":
		return "mp3", 0
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// Bare MPEG audio frame sync, no ID3 header.
		return "mp3", 0
	}
	return "", 0
}

// flacBitDepth reads bits-per-sample from the STREAMINFO block, which is
// always the first metadata block: 4 magic bytes, 4 block-header bytes, then
// 34 bytes of STREAMINFO with the sample description packed at offset 12.
func flacBitDepth(data []byte) int {
	if len(data) < 22 {
		return 0
	}
	return (int(data[20]&0x01)<<4 | int(data[21]>>4)) + 1
}

// wavBitDepth reads BitsPerSample from the canonical fmt chunk layout.
func wavBitDepth(data []byte) int {
	if len(data) < 36 || string(data[12:16]) != "fmt " {
		return 0
	}
	return int(binary.LittleEndian.Uint16(data[34:36]))
}

// aiffBitDepth walks the IFF chunk list for COMM and reads sampleSize.
func aiffBitDepth(data []byte) int {
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.BigEndian.Uint32(data[off+4 : off+8]))
		if id == "COMM" && off+8+8 <= len(data) {
			return int(binary.BigEndian.Uint16(data[off+14 : off+16]))
		}
		// Chunks are word-aligned.
		off += 8 + size + size%2
	}
	return 0
}
