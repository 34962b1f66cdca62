package decode

// RingCapacity is the total size of the on-board circular log region in the
// documented layout.
const RingCapacity = 0x40000

// Unwrap reconstructs the logical, chronologically ordered entry stream from
// a section of the on-disk ring buffer.
//
// start and end are the section's declared addresses, dataBegin the address
// where the section's entry data begins, and capacity the upper bound of the
// ring region. When the write position has wrapped (start >= end) the stream
// is the tail of the ring followed by the re-written head; otherwise it is
// the contiguous slice. Bytes past the declared end are stale data from
// before the last wrap and are never included.
func Unwrap(buf []byte, start, end, dataBegin, capacity int) []byte {
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > len(buf) {
			return len(buf)
		}
		return v
	}
	capEnd := clamp(capacity)
	start, end, dataBegin = clamp(start), clamp(end), clamp(dataBegin)

	if start >= end {
		out := make([]byte, 0, (capEnd-start)+(end-dataBegin))
		out = append(out, buf[start:capEnd]...)
		if dataBegin < end {
			out = append(out, buf[dataBegin:end]...)
		}
		return out
	}
	out := make([]byte, end-start)
	copy(out, buf[start:end])
	return out
}
