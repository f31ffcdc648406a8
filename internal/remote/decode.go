package remote

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
)

// fallbackEncodings are tried in order when output is not valid UTF-8.
// Remote Windows shells commonly answer in the system ANSI codepage.
var fallbackEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"cp949", korean.EUCKR},
	{"shift_jis", japanese.ShiftJIS},
}

// Decode turns raw process output into text. Valid UTF-8 is returned as is;
// otherwise each fallback codepage is tried and the first one that decodes
// without replacement characters wins. If none does, invalid sequences are
// replaced with U+FFFD.
func Decode(b []byte) string {
	s, _ := decodeWith(b)
	return s
}

// decodeWith also reports which decoder produced the text.
func decodeWith(b []byte) (string, string) {
	if utf8.Valid(b) {
		return string(b), "utf-8"
	}
	for _, fb := range fallbackEncodings {
		out, err := fb.enc.NewDecoder().Bytes(b)
		if err != nil {
			continue
		}
		if utf8.Valid(out) && !strings.ContainsRune(string(out), utf8.RuneError) {
			return string(out), fb.name
		}
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError)), "lossy"
}
