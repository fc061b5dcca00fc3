package csvparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUTF8_StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Name,Price,Status\nAlice,10,Delivery\n\nBob,\"5,50\",Open\n")...)

	table, err := ParseUTF8(data, "report.csv", Settings{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Price", "Status"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Alice", table.Rows[0]["Name"])
	assert.Equal(t, "5,50", table.Rows[1]["Price"])
}

func TestParseUTF8_RejectsLatin1(t *testing.T) {
	// "José" encoded as ISO-8859-1.
	data := []byte("Name,Price\nJos\xe9,10\n")

	_, err := ParseUTF8(data, "legacy.csv", Settings{})
	require.ErrorIs(t, err, ErrInvalidUTF8)

	table, err := ParseLatin1(data, "legacy.csv", Settings{})
	require.NoError(t, err)
	assert.Equal(t, "José", table.Rows[0]["Name"])
}

func TestParse_DetectsSemicolon(t *testing.T) {
	data := []byte("Name;Price;Note\r\nAlice;12,50;fragile\r\n")

	table, err := ParseUTF8(data, "semi.csv", Settings{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Price", "Note"}, table.Headers)
	assert.Equal(t, "12,50", table.Rows[0]["Price"])
}

func TestParse_ExplicitDelimiter(t *testing.T) {
	data := []byte("Name|Price\nAlice|3\n")

	table, err := ParseUTF8(data, "pipe.csv", Settings{Delimiter: "pipe"})
	require.NoError(t, err)
	assert.Equal(t, "3", table.Rows[0]["Price"])
}

func TestParse_Empty(t *testing.T) {
	_, err := ParseUTF8([]byte("  \n"), "empty.csv", Settings{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestParse_Binary(t *testing.T) {
	_, err := ParseLatin1([]byte("PK\x03\x04\x00\x00a,b,c"), "zip.csv", Settings{})
	require.ErrorIs(t, err, ErrBinaryContent)
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"a;b,c", ','},
		{"single", ','},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectDelimiter(tt.line), tt.line)
	}
}
