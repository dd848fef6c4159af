package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/metrolab/toposcan/internal/surface"
)

// Digital Surf studiable file layout (little-endian throughout).
//
// The 256-byte header carries calibration and the quantisation pair
// (scale, offset) that maps the signed-integer payload to physical
// heights. Header text fields (operator, object name, comment) are
// stored in a legacy single-byte encoding and transcoded on read.
const (
	surSignature  = "DIGITAL SURF"
	surHeaderSize = 256

	surOffVersion   = 12  // uint16, format revision
	surOffObjType   = 14  // uint16, 1 = surface studiable
	surOffOperator  = 16  // 30 bytes, padded text
	surOffObjName   = 46  // 30 bytes, padded text
	surOffBits      = 76  // uint16, bits per sample: 16 or 32
	surOffZMin      = 78  // int32, raw minimum
	surOffZMax      = 82  // int32, raw maximum
	surOffCols      = 86  // int32, points per line
	surOffRows      = 90  // int32, number of lines
	surOffTotal     = 94  // int32, total points, must equal rows*cols
	surOffStepX     = 98  // float32, µm
	surOffStepY     = 102 // float32, µm
	surOffZScale    = 106 // float32, µm per LSB
	surOffZOffset   = 110 // float32, µm
	surOffComment   = 114 // 64 bytes, padded text
	surOffNonMeas   = 178 // uint16, 1 when non-measured points are present
	surCommentSize  = 64
	surNameSize     = 30
	surVersionKnown = 1
	surObjSurface   = 1
)

// Non-measured points are stored as the most negative raw value for the
// sample width.
const (
	surInvalid16 = math.MinInt16
	surInvalid32 = math.MinInt32
)

type surDecoder struct{}

func (surDecoder) Name() string { return "sur" }

func (surDecoder) Detect(head []byte) bool {
	return len(head) >= len(surSignature) && string(head[:len(surSignature)]) == surSignature
}

func (d surDecoder) Decode(r io.Reader) (*surface.Surface, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Format: d.Name(), Kind: TruncatedData, Msg: "read failed", Err: err}
	}
	if len(raw) < surHeaderSize {
		return nil, decodeErr(d.Name(), TruncatedData, "file shorter than %d-byte header: %d bytes", surHeaderSize, len(raw))
	}
	if string(raw[:len(surSignature)]) != surSignature {
		return nil, decodeErr(d.Name(), CorruptHeader, "missing %q signature", surSignature)
	}

	version := binary.LittleEndian.Uint16(raw[surOffVersion:])
	if version != surVersionKnown {
		return nil, decodeErr(d.Name(), UnsupportedVersion, "format revision %d not supported", version)
	}
	if objType := binary.LittleEndian.Uint16(raw[surOffObjType:]); objType != surObjSurface {
		return nil, decodeErr(d.Name(), UnsupportedVersion, "studiable type %d is not a surface", objType)
	}

	bits := binary.LittleEndian.Uint16(raw[surOffBits:])
	if bits != 16 && bits != 32 {
		return nil, decodeErr(d.Name(), CorruptHeader, "bits per sample must be 16 or 32, got %d", bits)
	}
	cols := int(int32(binary.LittleEndian.Uint32(raw[surOffCols:])))
	rows := int(int32(binary.LittleEndian.Uint32(raw[surOffRows:])))
	total := int(int32(binary.LittleEndian.Uint32(raw[surOffTotal:])))
	if rows < 2 || cols < 2 {
		return nil, decodeErr(d.Name(), CorruptHeader, "grid %dx%d below 2x2 minimum", rows, cols)
	}
	if total != rows*cols {
		return nil, decodeErr(d.Name(), CorruptHeader, "total points %d does not match %dx%d grid", total, rows, cols)
	}

	stepX := float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[surOffStepX:])))
	stepY := float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[surOffStepY:])))
	zScale := float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[surOffZScale:])))
	zOffset := float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[surOffZOffset:])))
	if stepX <= 0 || stepY <= 0 || zScale <= 0 {
		return nil, decodeErr(d.Name(), CorruptHeader, "non-positive calibration: step=(%g, %g) scale=%g", stepX, stepY, zScale)
	}

	sampleBytes := int(bits) / 8
	payload := raw[surHeaderSize:]
	if len(payload) < total*sampleBytes {
		return nil, decodeErr(d.Name(), TruncatedData, "payload holds %d bytes, need %d", len(payload), total*sampleBytes)
	}

	hasInvalid := binary.LittleEndian.Uint16(raw[surOffNonMeas:]) == 1
	data := make([]float64, total)
	var valid []bool
	if hasInvalid {
		valid = make([]bool, total)
	}
	for i := 0; i < total; i++ {
		var rv int64
		switch bits {
		case 16:
			rv = int64(int16(binary.LittleEndian.Uint16(payload[i*2:])))
		case 32:
			rv = int64(int32(binary.LittleEndian.Uint32(payload[i*4:])))
		}
		invalid := hasInvalid && ((bits == 16 && rv == surInvalid16) || (bits == 32 && rv == surInvalid32))
		if invalid {
			data[i] = 0
		} else {
			data[i] = float64(rv)*zScale + zOffset
			if valid != nil {
				valid[i] = true
			}
		}
	}

	operator, _, err := decodeText(raw[surOffOperator : surOffOperator+surNameSize])
	if err != nil {
		return nil, wrapTextErr(d.Name(), "operator", err)
	}
	objName, _, err := decodeText(raw[surOffObjName : surOffObjName+surNameSize])
	if err != nil {
		return nil, wrapTextErr(d.Name(), "object name", err)
	}
	comment, commentEnc, err := decodeText(raw[surOffComment : surOffComment+surCommentSize])
	if err != nil {
		return nil, wrapTextErr(d.Name(), "comment", err)
	}

	s, err := surface.New(data, rows, cols, stepX, stepY)
	if err != nil {
		return nil, &DecodeError{Format: d.Name(), Kind: CorruptHeader, Msg: "decoded grid invalid", Err: err}
	}
	s.Valid = valid
	s.Meta = surface.Metadata{
		Instrument:   objName,
		Operator:     operator,
		Comment:      comment,
		SourceFormat: d.Name(),
		TextEncoding: commentEnc,
		ZUnit:        "um",
	}
	return s, nil
}

func wrapTextErr(format, field string, err error) error {
	if de, ok := err.(*DecodeError); ok {
		return &DecodeError{Format: format, Kind: de.Kind, Msg: fmt.Sprintf("%s field: %s", field, de.Msg)}
	}
	return &DecodeError{Format: format, Kind: UnknownEncoding, Msg: field + " field", Err: err}
}

// EncodeSUR writes s as a version-1 Digital Surf surface with 32-bit
// samples. Quantisation is chosen from the height range so that decoding
// reproduces the grid within float32 calibration precision.
func EncodeSUR(s *surface.Surface, w io.Writer) error {
	min, max := s.MinMax()
	span := max - min
	// Spread the range over most of the int32 domain; a flat surface
	// still needs a positive scale.
	scale := span / float64(math.MaxInt32-1)
	if scale <= 0 {
		scale = 1e-9
	}
	// Round-trip through float32 header fields.
	scale = float64(float32(scale))
	offset := float64(float32(min))

	header := make([]byte, surHeaderSize)
	copy(header, surSignature)
	binary.LittleEndian.PutUint16(header[surOffVersion:], surVersionKnown)
	binary.LittleEndian.PutUint16(header[surOffObjType:], surObjSurface)
	putPaddedText(header[surOffOperator:surOffOperator+surNameSize], s.Meta.Operator)
	putPaddedText(header[surOffObjName:surOffObjName+surNameSize], s.Meta.Instrument)
	binary.LittleEndian.PutUint16(header[surOffBits:], 32)

	total := s.Rows * s.Cols
	hasInvalid := !s.AllValid()
	rawSamples := make([]int32, total)
	rawMin := int64(math.MaxInt32)
	rawMax := int64(math.MinInt32)
	for i, v := range s.Data {
		if hasInvalid && !s.Valid[i] {
			rawSamples[i] = surInvalid32
			continue
		}
		rv := int64(math.Round((v - offset) / scale))
		if rv > math.MaxInt32 {
			rv = math.MaxInt32
		}
		if rv <= surInvalid32 {
			rv = surInvalid32 + 1
		}
		rawSamples[i] = int32(rv)
		if rv < rawMin {
			rawMin = rv
		}
		if rv > rawMax {
			rawMax = rv
		}
	}
	if rawMin > rawMax {
		rawMin, rawMax = 0, 0
	}

	binary.LittleEndian.PutUint32(header[surOffZMin:], uint32(int32(rawMin)))
	binary.LittleEndian.PutUint32(header[surOffZMax:], uint32(int32(rawMax)))
	binary.LittleEndian.PutUint32(header[surOffCols:], uint32(int32(s.Cols)))
	binary.LittleEndian.PutUint32(header[surOffRows:], uint32(int32(s.Rows)))
	binary.LittleEndian.PutUint32(header[surOffTotal:], uint32(int32(total)))
	binary.LittleEndian.PutUint32(header[surOffStepX:], math.Float32bits(float32(s.StepX)))
	binary.LittleEndian.PutUint32(header[surOffStepY:], math.Float32bits(float32(s.StepY)))
	binary.LittleEndian.PutUint32(header[surOffZScale:], math.Float32bits(float32(scale)))
	binary.LittleEndian.PutUint32(header[surOffZOffset:], math.Float32bits(float32(offset)))
	putPaddedText(header[surOffComment:surOffComment+surCommentSize], s.Meta.Comment)
	if hasInvalid {
		binary.LittleEndian.PutUint16(header[surOffNonMeas:], 1)
	}

	var buf bytes.Buffer
	buf.Grow(surHeaderSize + total*4)
	buf.Write(header)
	for _, rv := range rawSamples {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(rv))
		buf.Write(b[:])
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// putPaddedText writes ASCII-safe text into a fixed-width NUL-padded
// field, truncating as needed. Non-Latin-1 runes are replaced so the
// field stays decodable.
func putPaddedText(dst []byte, text string) {
	i := 0
	for _, r := range text {
		if i >= len(dst) {
			break
		}
		if r > 0xFF {
			r = '?'
		}
		dst[i] = byte(r)
		i++
	}
}
