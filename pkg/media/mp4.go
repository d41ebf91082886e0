package media

import (
	"encoding/binary"
)

// probeMP4Duration scans an ISO BMFF buffer for the moov/mvhd box and
// returns the declared duration in seconds. ok is false when the data
// is not a parseable MP4 or the header carries no usable duration.
func probeMP4Duration(data []byte) (float64, bool) {
	moov, ok := findBox(data, "moov")
	if !ok {
		return 0, false
	}
	mvhd, ok := findBox(moov, "mvhd")
	if !ok {
		return 0, false
	}
	if len(mvhd) < 4 {
		return 0, false
	}

	version := mvhd[0]
	var timescale, duration uint64
	switch version {
	case 0:
		// fullbox header(4) creation(4) modification(4) timescale(4) duration(4)
		if len(mvhd) < 20 {
			return 0, false
		}
		timescale = uint64(binary.BigEndian.Uint32(mvhd[12:16]))
		duration = uint64(binary.BigEndian.Uint32(mvhd[16:20]))
	case 1:
		// fullbox header(4) creation(8) modification(8) timescale(4) duration(8)
		if len(mvhd) < 32 {
			return 0, false
		}
		timescale = uint64(binary.BigEndian.Uint32(mvhd[20:24]))
		duration = binary.BigEndian.Uint64(mvhd[24:32])
	default:
		return 0, false
	}

	if timescale == 0 || duration == 0 {
		return 0, false
	}
	return float64(duration) / float64(timescale), true
}

// findBox walks sibling boxes in data and returns the payload of the
// first box with the given type.
func findBox(data []byte, boxType string) ([]byte, bool) {
	offset := 0
	for offset+8 <= len(data) {
		size := uint64(binary.BigEndian.Uint32(data[offset : offset+4]))
		name := string(data[offset+4 : offset+8])
		headerLen := 8

		switch size {
		case 1:
			if offset+16 > len(data) {
				return nil, false
			}
			size = binary.BigEndian.Uint64(data[offset+8 : offset+16])
			headerLen = 16
		case 0:
			// box extends to end of data
			size = uint64(len(data) - offset)
		}

		if size < uint64(headerLen) || uint64(offset)+size > uint64(len(data)) {
			return nil, false
		}

		if name == boxType {
			return data[offset+headerLen : uint64(offset)+size], true
		}
		offset += int(size)
	}
	return nil, false
}
