package formats

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/metrolab/toposcan/internal/surface"
)

// Keyence VK4 laser confocal layout (little-endian).
//
// The file opens with a "VK4_" magic and a small header that points at
// the height data block. Lateral and vertical resolutions are stored in
// picometres; heights are unsigned 32-bit counts of the vertical
// resolution unit.
const (
	vk4Magic      = "VK4_"
	vk4HeaderSize = 16

	vk4OffVersion      = 4  // uint32, header revision
	vk4OffHeightOffset = 8  // uint32, byte offset of the height block
	vk4OffNameOffset   = 12 // uint32, byte offset of the title block, 0 if absent

	// Height block layout, relative to the block start.
	vk4HOffWidth    = 0  // uint32, columns
	vk4HOffHeight   = 4  // uint32, rows
	vk4HOffBitDepth = 8  // uint32, must be 32
	vk4HOffComp     = 12 // uint32, 0 = uncompressed
	vk4HOffByteSize = 16 // uint32, payload size in bytes
	vk4HOffLatResX  = 20 // float64, picometres per pixel
	vk4HOffLatResY  = 28 // float64, picometres per pixel
	vk4HOffZRes     = 36 // float64, picometres per count
	vk4HeightHdrLen = 44

	vk4MaxVersion = 2

	picoPerMicro = 1e6
)

type vk4Decoder struct{}

func (vk4Decoder) Name() string { return "vk4" }

func (vk4Decoder) Detect(head []byte) bool {
	return len(head) >= len(vk4Magic) && string(head[:len(vk4Magic)]) == vk4Magic
}

func (d vk4Decoder) Decode(r io.Reader) (*surface.Surface, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Format: d.Name(), Kind: TruncatedData, Msg: "read failed", Err: err}
	}
	if len(raw) < vk4HeaderSize {
		return nil, decodeErr(d.Name(), TruncatedData, "file shorter than %d-byte header: %d bytes", vk4HeaderSize, len(raw))
	}
	if string(raw[:len(vk4Magic)]) != vk4Magic {
		return nil, decodeErr(d.Name(), CorruptHeader, "missing %q magic", vk4Magic)
	}
	version := binary.LittleEndian.Uint32(raw[vk4OffVersion:])
	if version == 0 || version > vk4MaxVersion {
		return nil, decodeErr(d.Name(), UnsupportedVersion, "header revision %d not supported", version)
	}

	hOff := int(binary.LittleEndian.Uint32(raw[vk4OffHeightOffset:]))
	if hOff < vk4HeaderSize || hOff+vk4HeightHdrLen > len(raw) {
		return nil, decodeErr(d.Name(), CorruptHeader, "height block offset %d out of bounds", hOff)
	}
	block := raw[hOff:]

	cols := int(binary.LittleEndian.Uint32(block[vk4HOffWidth:]))
	rows := int(binary.LittleEndian.Uint32(block[vk4HOffHeight:]))
	bitDepth := binary.LittleEndian.Uint32(block[vk4HOffBitDepth:])
	comp := binary.LittleEndian.Uint32(block[vk4HOffComp:])
	byteSize := int(binary.LittleEndian.Uint32(block[vk4HOffByteSize:]))
	if rows < 2 || cols < 2 {
		return nil, decodeErr(d.Name(), CorruptHeader, "grid %dx%d below 2x2 minimum", rows, cols)
	}
	if bitDepth != 32 {
		return nil, decodeErr(d.Name(), UnsupportedVersion, "bit depth %d not supported", bitDepth)
	}
	if comp != 0 {
		return nil, decodeErr(d.Name(), UnsupportedVersion, "compressed height data not supported")
	}
	if byteSize != rows*cols*4 {
		return nil, decodeErr(d.Name(), CorruptHeader, "payload size %d does not match %dx%d grid", byteSize, rows, cols)
	}

	latResX := math.Float64frombits(binary.LittleEndian.Uint64(block[vk4HOffLatResX:]))
	latResY := math.Float64frombits(binary.LittleEndian.Uint64(block[vk4HOffLatResY:]))
	zRes := math.Float64frombits(binary.LittleEndian.Uint64(block[vk4HOffZRes:]))
	if !(latResX > 0) || !(latResY > 0) || !(zRes > 0) {
		return nil, decodeErr(d.Name(), CorruptHeader, "non-positive resolution: x=%g y=%g z=%g", latResX, latResY, zRes)
	}

	payload := block[vk4HeightHdrLen:]
	if len(payload) < byteSize {
		return nil, decodeErr(d.Name(), TruncatedData, "height payload holds %d bytes, need %d", len(payload), byteSize)
	}

	data := make([]float64, rows*cols)
	for i := range data {
		count := binary.LittleEndian.Uint32(payload[i*4:])
		data[i] = float64(count) * zRes / picoPerMicro
	}

	title := ""
	titleEnc := "utf-8"
	if nOff := int(binary.LittleEndian.Uint32(raw[vk4OffNameOffset:])); nOff != 0 {
		if nOff < vk4HeaderSize || nOff+4 > len(raw) {
			return nil, decodeErr(d.Name(), CorruptHeader, "title block offset %d out of bounds", nOff)
		}
		nameLen := int(binary.LittleEndian.Uint32(raw[nOff:]))
		if nameLen < 0 || nOff+4+nameLen > len(raw) {
			return nil, decodeErr(d.Name(), TruncatedData, "title block of %d bytes exceeds file", nameLen)
		}
		title, titleEnc, err = decodeText(raw[nOff+4 : nOff+4+nameLen])
		if err != nil {
			return nil, wrapTextErr(d.Name(), "title", err)
		}
	}

	s, err := surface.New(data, rows, cols, latResX/picoPerMicro, latResY/picoPerMicro)
	if err != nil {
		return nil, &DecodeError{Format: d.Name(), Kind: CorruptHeader, Msg: "decoded grid invalid", Err: err}
	}
	s.Meta = surface.Metadata{
		Instrument:   "Keyence VK",
		Comment:      title,
		SourceFormat: d.Name(),
		TextEncoding: titleEnc,
		ZUnit:        "um",
	}
	return s, nil
}
