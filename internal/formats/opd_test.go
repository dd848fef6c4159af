package formats

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildOPD assembles a minimal OPD file with a RAW_DATA matrix and the
// three calibration scalars the decoder needs.
func buildOPD(samples []int16, rows, cols int, wavelengthNM float32, mult int16, pixelMM float32) []byte {
	le := binary.LittleEndian
	var buf bytes.Buffer
	buf.Write(opdMagic)

	entry := func(name string, typ int16, length int) []byte {
		e := make([]byte, opdDirEntrySize)
		copy(e[:opdNameSize], name)
		le.PutUint16(e[opdNameSize:], uint16(typ))
		le.PutUint32(e[opdNameSize+2:], uint32(length))
		return e
	}

	rawLen := 6 + rows*cols*2
	dirLen := 5 * opdDirEntrySize
	buf.Write(entry(opdDirName, 0, dirLen))
	buf.Write(entry("RAW_DATA", opdTypeInt16, rawLen))
	buf.Write(entry("Wavelength", opdTypeFloat32, 4))
	buf.Write(entry("Mult", opdTypeInt16Sc, 2))
	buf.Write(entry("Pixel_size", opdTypeFloat32, 4))

	// RAW_DATA payload: cols, rows, element size, then samples.
	hdr := make([]byte, 6)
	le.PutUint16(hdr[0:], uint16(cols))
	le.PutUint16(hdr[2:], uint16(rows))
	le.PutUint16(hdr[4:], 2)
	buf.Write(hdr)
	for _, s := range samples {
		var b [2]byte
		le.PutUint16(b[:], uint16(s))
		buf.Write(b[:])
	}

	var wl [4]byte
	le.PutUint32(wl[:], math.Float32bits(wavelengthNM))
	buf.Write(wl[:])
	var m [2]byte
	le.PutUint16(m[:], uint16(mult))
	buf.Write(m[:])
	var px [4]byte
	le.PutUint32(px[:], math.Float32bits(pixelMM))
	buf.Write(px[:])

	return buf.Bytes()
}

func TestOPD_Decode(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 100, 200, -100, 50, 150}
	raw := buildOPD(samples, 2, 3, 600, 2, 0.001)

	s, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Rows)
	assert.Equal(t, 3, s.Cols)
	// 0.001 mm pixel = 1 µm.
	assert.InDelta(t, 1.0, s.StepX, 1e-9)
	// 100 counts * 600 nm / 2 / 1000 = 30 µm... scale = 600/2/1000 = 0.3 µm per count.
	assert.InDelta(t, 30.0, s.Data[1], 1e-4)
	assert.InDelta(t, -30.0, s.Data[3], 1e-4)
	assert.Nil(t, s.Valid)
}

func TestOPD_BadPixelsMasked(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 32767, 200, -100, 32766, 150}
	raw := buildOPD(samples, 2, 3, 600, 1, 0.001)

	s, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)

	require.NotNil(t, s.Valid)
	assert.False(t, s.Valid[1])
	assert.False(t, s.Valid[4])
	assert.True(t, s.Valid[0])
	assert.InDelta(t, 2.0/6.0, s.InvalidFraction(), 1e-12)
}

func TestOPD_MissingCalibration(t *testing.T) {
	t.Parallel()

	raw := buildOPD([]int16{0, 1, 2, 3}, 2, 2, 600, 1, 0.001)
	// Blank out the Wavelength entry name so the block cannot be found.
	entryOff := 2 + opdDirEntrySize*2
	for i := 0; i < opdNameSize; i++ {
		raw[entryOff+i] = 0
	}

	_, err := Decode(bytes.NewReader(raw))
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CorruptHeader, de.Kind)
}

func TestOPD_Truncated(t *testing.T) {
	t.Parallel()

	raw := buildOPD([]int16{0, 1, 2, 3}, 2, 2, 600, 1, 0.001)
	got, err := Decode(bytes.NewReader(raw[:len(raw)-6]))
	assert.Nil(t, got)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, TruncatedData, de.Kind)
}
