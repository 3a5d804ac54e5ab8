package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1MB", 1 << 20},
		{"512kb", 512 << 10},
		{" 2G ", 2 << 30},
		{"64 KB", 64 << 10},
		{"100", 100},
		{"100B", 100},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "lots", "MB", "-1KB", "1.5MB"} {
		_, err := ParseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestSizeOr(t *testing.T) {
	assert.Equal(t, int64(2<<20), SizeOr("2MB", 42))
	assert.Equal(t, int64(42), SizeOr("", 42))
	assert.Equal(t, int64(42), SizeOr("huge", 42))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "sk-a***(20)", MaskSecret("sk-abcdefghijklmnopq", 4))
	assert.Equal(t, "***(6)", MaskSecret("sk-abc", 4))
	assert.Equal(t, "<unset>", MaskSecret("", 4))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry[int]("engine")
	r.Register("whisper", 1)
	r.Register("deepgram", 2)
	r.Register("whisper", 3)

	assert.Equal(t, []string{"deepgram", "whisper"}, r.Names())
	v, err := r.Lookup("whisper")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = r.Lookup("vosk")
	assert.EqualError(t, err, `unknown engine "vosk", registered: [deepgram whisper]`)
}
