package formats

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// legacyEncodings is the priority-ordered transcoding table for header
// text that is not valid UTF-8. The order is empirical, tuned against
// real instrument files: western European code pages dominate, with
// Shift-JIS appearing in files from Japanese-market instruments.
// Shift-JIS is tried first only when its double-byte lead pattern is
// present, since every byte sequence is formally decodable as
// windows-1252.
var legacyEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"windows-1252", charmap.Windows1252},
	{"latin-1", charmap.ISO8859_1},
}

// decodeText transcodes a NUL-padded header field to UTF-8, returning
// the text and the name of the source encoding. It never fails for
// single-byte fallbacks; a nil error with encoding "unknown" is not
// possible by construction.
func decodeText(raw []byte) (text, encodingName string, err error) {
	raw = trimPadding(raw)
	if len(raw) == 0 {
		return "", "utf-8", nil
	}

	// Byte-order marks take priority over sniffing.
	if bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
		return string(raw[3:]), "utf-8", nil
	}
	if bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, derr := dec.Bytes(raw)
		if derr != nil {
			return "", "", derr
		}
		return string(out), "utf-16", nil
	}

	if utf8.Valid(raw) && !hasHighBytes(raw) {
		return string(raw), "utf-8", nil
	}
	if utf8.Valid(raw) {
		// High bytes forming valid multi-byte sequences: genuine UTF-8.
		return string(raw), "utf-8", nil
	}

	if looksLikeShiftJIS(raw) {
		out, derr := japanese.ShiftJIS.NewDecoder().Bytes(raw)
		if derr == nil && !strings.ContainsRune(string(out), utf8.RuneError) {
			return string(out), "shift-jis", nil
		}
	}

	for _, cand := range legacyEncodings {
		out, derr := cand.enc.NewDecoder().Bytes(raw)
		if derr != nil {
			continue
		}
		text := string(out)
		if strings.ContainsRune(text, utf8.RuneError) {
			continue
		}
		return text, cand.name, nil
	}
	return "", "", decodeErr("text", UnknownEncoding, "header text not decodable by any configured encoding")
}

// trimPadding strips trailing NUL and space padding used by fixed-width
// header fields.
func trimPadding(raw []byte) []byte {
	return bytes.TrimRight(raw, "\x00 ")
}

func hasHighBytes(raw []byte) bool {
	for _, b := range raw {
		if b >= 0x80 {
			return true
		}
	}
	return false
}

// looksLikeShiftJIS reports whether raw contains at least one plausible
// Shift-JIS double-byte sequence.
func looksLikeShiftJIS(raw []byte) bool {
	for i := 0; i+1 < len(raw); i++ {
		lead := raw[i]
		trail := raw[i+1]
		leadOK := (lead >= 0x81 && lead <= 0x9F) || (lead >= 0xE0 && lead <= 0xEF)
		trailOK := (trail >= 0x40 && trail <= 0xFC) && trail != 0x7F
		if leadOK && trailOK {
			return true
		}
	}
	return false
}
