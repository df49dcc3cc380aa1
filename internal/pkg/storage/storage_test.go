package storage

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wavBytes builds a minimal RIFF/WAVE header followed by silence.
func wavBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+8))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8000))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16000))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8))
	buf.Write(make([]byte, 8))
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	allowed := []string{"audio/wav", "text/plain", "application/pdf"}

	tests := []struct {
		name    string
		data    []byte
		allowed bool
		ext     string
	}{
		{"wav", wavBytes(), true, ".wav"},
		{"plain text", []byte("My grandmother was born in 1921 in a small village."), true, ".txt"},
		{"pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"), true, ".pdf"},
		{"png is not allowed", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), false, ".png"},
		{"random bytes", []byte{0x00, 0x01, 0x02, 0xff, 0xfe}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Sniff(tt.data, allowed)
			assert.Equal(t, tt.allowed, res.Allowed, res.MimeType)
			assert.Equal(t, tt.ext, res.Extension)
		})
	}
}

func TestFileStore_SaveAndRemove(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	path, err := fs.Save(bytes.NewReader([]byte("hello")), "txt")
	require.NoError(t, err)
	assert.Equal(t, ".txt", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, fs.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, fs.Remove("/etc/passwd"))
}
