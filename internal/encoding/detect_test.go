package encoding_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/MrJamesThe3rd/offertory/internal/encoding"
)

const header = "Data mov.;Descrição;Montante\n"

func decodeAll(t *testing.T, input []byte) (string, string) {
	t.Helper()

	d, err := encoding.Decode(bytes.NewReader(input))
	require.NoError(t, err)

	got, err := io.ReadAll(d)
	require.NoError(t, err)

	return string(got), d.Charset
}

func TestDecode(t *testing.T) {
	latin1, err := charmap.Windows1252.NewEncoder().String(header + "02-06-2024;Oferta Missão;25,00\n")
	require.NoError(t, err)

	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(header)
	require.NoError(t, err)

	testCases := []struct {
		name        string
		input       []byte
		wantText    string
		wantCharset string
	}{
		{
			name:        "UTF8Passthrough",
			input:       []byte(header + "Café;12,50\n"),
			wantText:    header + "Café;12,50\n",
			wantCharset: encoding.UTF8,
		},
		{
			name:        "UTF8BOMStripped",
			input:       append([]byte{0xEF, 0xBB, 0xBF}, header...),
			wantText:    header,
			wantCharset: encoding.UTF8,
		},
		{
			name:        "UTF16LE",
			input:       []byte(utf16le),
			wantText:    header,
			wantCharset: encoding.UTF16LE,
		},
		{
			name:     "Latin1",
			input:    []byte(latin1),
			wantText: header + "02-06-2024;Oferta Missão;25,00\n",
		},
		{
			name:        "Empty",
			input:       nil,
			wantText:    "",
			wantCharset: encoding.UTF8,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text, charset := decodeAll(t, tc.input)
			assert.Equal(t, tc.wantText, text)

			if tc.wantCharset == "" {
				assert.NotEqual(t, encoding.UTF8, charset)
				return
			}

			assert.Equal(t, tc.wantCharset, charset)
		})
	}
}

func TestDecode_RuneSplitAtSniffWindow(t *testing.T) {
	// "ç" straddles the 4096-byte sniff window.
	input := strings.Repeat("a", 4095) + "ção\n"

	text, charset := decodeAll(t, []byte(input))
	assert.Equal(t, input, text)
	assert.Equal(t, encoding.UTF8, charset)
}

func TestNewUTF8Reader(t *testing.T) {
	// windows-1252: ç = 0xE7, ã = 0xE3
	latin1 := []byte{
		'D', 'e', 's', 'c', 'r', 'i', 0xE7, 0xE3, 'o', ';',
		'M', 'o', 'n', 't', 'a', 'n', 't', 'e', '\n',
	}

	r, err := encoding.NewUTF8Reader(bytes.NewReader(latin1))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Descrição;Montante\n", string(got))
}
