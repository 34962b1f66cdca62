package decode

// Entry bytes from the type code onward are escaped on the wire so that the
// 0xb2 header marker and the escape marker itself never appear literally
// inside an entry. An escape pair is the marker followed by the bitwise
// complement of the real byte.
const (
	escapeMarker = 0xfe
	entryHeader  = 0xb2
)

// Unescape reverses the escape transform over a bounded slice. A lone
// trailing marker cannot be resolved; it is emitted literally and the second
// return value reports that the slice ended mid-pair.
func Unescape(in []byte) ([]byte, bool) {
	out := make([]byte, 0, len(in))
	truncated := false
	for i := 0; i < len(in); i++ {
		b := in[i]
		if b != escapeMarker {
			out = append(out, b)
			continue
		}
		if i+1 >= len(in) {
			out = append(out, escapeMarker)
			truncated = true
			break
		}
		out = append(out, ^in[i+1])
		i++
	}
	return out, truncated
}

// Escape applies the wire transform: bytes that must not appear literally
// inside an entry are replaced by a marker pair. Escape(Unescape(x)) == x
// for any well-formed escaped sequence.
func Escape(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, b := range in {
		if b == escapeMarker || b == entryHeader {
			out = append(out, escapeMarker, ^b)
			continue
		}
		out = append(out, b)
	}
	return out
}
