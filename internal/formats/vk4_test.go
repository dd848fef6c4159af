package formats

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildVK4 assembles a minimal uncompressed VK4 file: 2x3 grid,
// 0.5 µm lateral pitch, 1000 pm height unit.
func buildVK4(counts []uint32, rows, cols int) []byte {
	var buf bytes.Buffer
	le := binary.LittleEndian

	header := make([]byte, vk4HeaderSize)
	copy(header, vk4Magic)
	le.PutUint32(header[vk4OffVersion:], 1)
	le.PutUint32(header[vk4OffHeightOffset:], vk4HeaderSize)
	le.PutUint32(header[vk4OffNameOffset:], 0)
	buf.Write(header)

	block := make([]byte, vk4HeightHdrLen)
	le.PutUint32(block[vk4HOffWidth:], uint32(cols))
	le.PutUint32(block[vk4HOffHeight:], uint32(rows))
	le.PutUint32(block[vk4HOffBitDepth:], 32)
	le.PutUint32(block[vk4HOffComp:], 0)
	le.PutUint32(block[vk4HOffByteSize:], uint32(rows*cols*4))
	le.PutUint64(block[vk4HOffLatResX:], math.Float64bits(5e5))  // 0.5 µm in pm
	le.PutUint64(block[vk4HOffLatResY:], math.Float64bits(5e5))  // 0.5 µm in pm
	le.PutUint64(block[vk4HOffZRes:], math.Float64bits(1000.0)) // 1 nm per count
	buf.Write(block)

	for _, c := range counts {
		var b [4]byte
		le.PutUint32(b[:], c)
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func TestVK4_Decode(t *testing.T) {
	t.Parallel()

	counts := []uint32{0, 1000, 2000, 3000, 4000, 5000}
	raw := buildVK4(counts, 2, 3)

	s, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, 3, s.Cols)
	assert.InDelta(t, 0.5, s.StepX, 1e-12)
	assert.InDelta(t, 0.5, s.StepY, 1e-12)
	// 1000 counts at 1000 pm each = 1 µm.
	assert.InDelta(t, 1.0, s.Data[1], 1e-12)
	assert.InDelta(t, 5.0, s.Data[5], 1e-12)
	assert.Equal(t, "vk4", s.Meta.SourceFormat)
}

func TestVK4_Truncated(t *testing.T) {
	t.Parallel()

	raw := buildVK4([]uint32{0, 1, 2, 3, 4, 5}, 2, 3)
	got, err := Decode(bytes.NewReader(raw[:len(raw)-8]))
	assert.Nil(t, got)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, TruncatedData, de.Kind)
}

func TestVK4_BadHeader(t *testing.T) {
	t.Parallel()

	t.Run("version", func(t *testing.T) {
		raw := buildVK4([]uint32{0, 1, 2, 3, 4, 5}, 2, 3)
		binary.LittleEndian.PutUint32(raw[vk4OffVersion:], 99)
		_, err := Decode(bytes.NewReader(raw))
		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, UnsupportedVersion, de.Kind)
	})

	t.Run("height offset out of bounds", func(t *testing.T) {
		raw := buildVK4([]uint32{0, 1, 2, 3, 4, 5}, 2, 3)
		binary.LittleEndian.PutUint32(raw[vk4OffHeightOffset:], uint32(len(raw)+100))
		_, err := Decode(bytes.NewReader(raw))
		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, CorruptHeader, de.Kind)
	})

	t.Run("byte size mismatch", func(t *testing.T) {
		raw := buildVK4([]uint32{0, 1, 2, 3, 4, 5}, 2, 3)
		binary.LittleEndian.PutUint32(raw[vk4HeaderSize+vk4HOffByteSize:], 11)
		_, err := Decode(bytes.NewReader(raw))
		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, CorruptHeader, de.Kind)
	})
}
