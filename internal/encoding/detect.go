package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charsets reported by Decode.
const (
	UTF8        = "UTF-8"
	UTF16LE     = "UTF-16LE"
	UTF16BE     = "UTF-16BE"
	Windows1252 = "windows-1252"
)

const sniffLen = 4096

var boms = []struct {
	prefix  []byte
	charset string
	decoder encoding.Encoding
}{
	{prefix: []byte{0xEF, 0xBB, 0xBF}, charset: UTF8},
	{prefix: []byte{0xFF, 0xFE}, charset: UTF16LE, decoder: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)},
	{prefix: []byte{0xFE, 0xFF}, charset: UTF16BE, decoder: unicode.UTF16(unicode.BigEndian, unicode.UseBOM)},
}

// Latin-1 statements are read as windows-1252, its superset for the printable range.
var aliases = map[string]string{
	"ISO-8859-1": Windows1252,
}

// Decoded is a UTF-8 view of a statement together with the charset it was read as.
type Decoded struct {
	io.Reader
	Charset string
}

// Decode sniffs the first bytes of r and returns a reader producing UTF-8.
// A byte order mark wins; valid UTF-8 passes through; otherwise chardet picks the charset and
// windows-1252 is assumed when it cannot.
func Decode(r io.Reader) (*Decoded, error) {
	br := bufio.NewReaderSize(r, sniffLen)

	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek: %w", err)
	}

	for _, b := range boms {
		if !bytes.HasPrefix(head, b.prefix) {
			continue
		}

		if b.decoder == nil {
			_, _ = br.Discard(len(b.prefix))
			return &Decoded{Reader: br, Charset: b.charset}, nil
		}

		return &Decoded{Reader: transform.NewReader(br, b.decoder.NewDecoder()), Charset: b.charset}, nil
	}

	sample := head
	if len(sample) == sniffLen {
		sample = trimPartialRune(sample)
	}

	if utf8.Valid(sample) {
		return &Decoded{Reader: br, Charset: UTF8}, nil
	}

	name, enc := guess(head)

	return &Decoded{Reader: transform.NewReader(br, enc.NewDecoder()), Charset: name}, nil
}

// NewUTF8Reader is Decode without the charset.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	d, err := Decode(r)
	if err != nil {
		return nil, err
	}

	return d.Reader, nil
}

func guess(head []byte) (string, encoding.Encoding) {
	res, err := chardet.NewTextDetector().DetectBest(head)
	if err != nil || res.Charset == UTF8 {
		return Windows1252, charmap.Windows1252
	}

	name := res.Charset
	if alias, ok := aliases[name]; ok {
		name = alias
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return Windows1252, charmap.Windows1252
	}

	return name, enc
}

// trimPartialRune drops a multi-byte sequence cut off by the sniff window.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}

		b = b[:len(b)-1]
	}

	return b
}
