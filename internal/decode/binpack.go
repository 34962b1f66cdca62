package decode

import (
	"bytes"
	"strings"
	"unicode"
)

// pbuf is a little-endian view over an unescaped payload. Reads past the end
// yield zero bytes, matching the reference decoder, so a short or truncated
// payload decodes to zeros instead of failing.
type pbuf []byte

func (p pbuf) at(off int) byte {
	if off < 0 || off >= len(p) {
		return 0
	}
	return p[off]
}

func (p pbuf) u8(off int) uint8 { return p.at(off) }

func (p pbuf) i8(off int) int8 { return int8(p.at(off)) }

func (p pbuf) u16(off int) uint16 {
	return uint16(p.at(off)) | uint16(p.at(off+1))<<8
}

func (p pbuf) i16(off int) int16 { return int16(p.u16(off)) }

func (p pbuf) u32(off int) uint32 {
	return uint32(p.at(off)) | uint32(p.at(off+1))<<8 |
		uint32(p.at(off+2))<<16 | uint32(p.at(off+3))<<24
}

func (p pbuf) i32(off int) int32 { return int32(p.u32(off)) }

func (p pbuf) flag(off int) bool { return p.at(off) != 0 }

// str decodes count bytes at off as text: cut at the first NUL, drop any
// invalid UTF-8.
func (p pbuf) str(off, count int) string {
	if count <= 0 || off >= len(p) {
		return ""
	}
	end := off + count
	if end > len(p) {
		end = len(p)
	}
	raw := p[off:end]
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return strings.ToValidUTF8(string(raw), "")
}

// tail returns the payload bytes from off to the end.
func (p pbuf) tail(off int) []byte {
	if off < 0 || off >= len(p) {
		return nil
	}
	return p[off:]
}

// isPrintable reports whether s consists only of printable ASCII
// (including space).
func isPrintable(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII || (!unicode.IsPrint(r) && r != '\t' && r != '\n' && r != '\r') {
			return false
		}
	}
	return true
}
