package formats

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/metrolab/toposcan/internal/surface"
)

// Wyko/Veeco OPD interferometer layout (little-endian).
//
// The file is a flat directory of named blocks. The first block is the
// directory itself; each 24-byte entry names a block, its element type
// and its byte length. Block payloads follow the directory in entry
// order. Heights come from the RAW_DATA block as signed 16-bit fringe
// counts, scaled by Wavelength over Mult into nanometres. Saturated or
// dropped pixels are stored at or above the bad-pixel sentinel.
const (
	opdDirEntrySize = 24
	opdNameSize     = 16

	opdTypeInt16   = 3
	opdTypeFloat32 = 7
	opdTypeInt16Sc = 6 // scalar int16

	// Raw int16 values at or above this magnitude mark non-measured pixels.
	opdBadPixel = 32766

	nanoPerMicro = 1e3
)

// opdMagic is the two-byte prefix before the directory block name.
var opdMagic = []byte{0x01, 0x00}

const opdDirName = "Directory"

type opdDecoder struct{}

func (opdDecoder) Name() string { return "opd" }

func (opdDecoder) Detect(head []byte) bool {
	if len(head) < 2+len(opdDirName) {
		return false
	}
	return head[0] == opdMagic[0] && head[1] == opdMagic[1] &&
		string(head[2:2+len(opdDirName)]) == opdDirName
}

// opdBlock is one parsed directory entry plus its payload position.
type opdBlock struct {
	name   string
	typ    int16
	length int
	offset int
}

func (d opdDecoder) Decode(r io.Reader) (*surface.Surface, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Format: d.Name(), Kind: TruncatedData, Msg: "read failed", Err: err}
	}
	if len(raw) < 2+opdDirEntrySize {
		return nil, decodeErr(d.Name(), TruncatedData, "file shorter than directory header: %d bytes", len(raw))
	}
	if !d.Detect(raw[:min(len(raw), detectWindow)]) {
		return nil, decodeErr(d.Name(), CorruptHeader, "missing directory signature")
	}

	// The first entry describes the directory block itself; its length
	// covers all entries including itself.
	dirStart := 2
	dirLen := int(binary.LittleEndian.Uint32(raw[dirStart+opdNameSize+2:]))
	if dirLen < opdDirEntrySize || dirLen%opdDirEntrySize != 0 {
		return nil, decodeErr(d.Name(), CorruptHeader, "directory length %d not a multiple of %d", dirLen, opdDirEntrySize)
	}
	if dirStart+dirLen > len(raw) {
		return nil, decodeErr(d.Name(), TruncatedData, "directory of %d bytes exceeds file", dirLen)
	}

	nEntries := dirLen / opdDirEntrySize
	blocks := make([]opdBlock, 0, nEntries-1)
	payloadOff := dirStart + dirLen
	for i := 1; i < nEntries; i++ {
		e := raw[dirStart+i*opdDirEntrySize:]
		name, _, terr := decodeText(e[:opdNameSize])
		if terr != nil {
			return nil, wrapTextErr(d.Name(), "block name", terr)
		}
		if name == "" {
			continue // unused trailing entry
		}
		b := opdBlock{
			name:   name,
			typ:    int16(binary.LittleEndian.Uint16(e[opdNameSize:])),
			length: int(binary.LittleEndian.Uint32(e[opdNameSize+2:])),
			offset: payloadOff,
		}
		if b.length < 0 || b.offset+b.length > len(raw) {
			return nil, decodeErr(d.Name(), TruncatedData, "block %q of %d bytes exceeds file", b.name, b.length)
		}
		blocks = append(blocks, b)
		payloadOff += b.length
	}

	find := func(name string) *opdBlock {
		for i := range blocks {
			if blocks[i].name == name {
				return &blocks[i]
			}
		}
		return nil
	}

	rawBlock := find("RAW_DATA")
	if rawBlock == nil {
		rawBlock = find("RAW DATA")
	}
	if rawBlock == nil {
		return nil, decodeErr(d.Name(), CorruptHeader, "no RAW_DATA block")
	}
	if rawBlock.typ != opdTypeInt16 {
		return nil, decodeErr(d.Name(), UnsupportedVersion, "RAW_DATA element type %d not supported", rawBlock.typ)
	}
	if rawBlock.length < 6 {
		return nil, decodeErr(d.Name(), TruncatedData, "RAW_DATA block too short: %d bytes", rawBlock.length)
	}

	body := raw[rawBlock.offset : rawBlock.offset+rawBlock.length]
	cols := int(binary.LittleEndian.Uint16(body[0:]))
	rows := int(binary.LittleEndian.Uint16(body[2:]))
	elSize := int(binary.LittleEndian.Uint16(body[4:]))
	if rows < 2 || cols < 2 {
		return nil, decodeErr(d.Name(), CorruptHeader, "grid %dx%d below 2x2 minimum", rows, cols)
	}
	if elSize != 2 {
		return nil, decodeErr(d.Name(), UnsupportedVersion, "element size %d not supported", elSize)
	}
	if len(body) < 6+rows*cols*2 {
		return nil, decodeErr(d.Name(), TruncatedData, "RAW_DATA holds %d bytes, need %d", len(body)-6, rows*cols*2)
	}

	wavelength, err := d.scalarFloat32(raw, find("Wavelength"))
	if err != nil {
		return nil, err
	}
	pixelSizeMM, err := d.scalarFloat32(raw, find("Pixel_size"))
	if err != nil {
		return nil, err
	}
	mult, err := d.scalarInt16(raw, find("Mult"))
	if err != nil {
		return nil, err
	}
	if !(wavelength > 0) || !(pixelSizeMM > 0) || mult <= 0 {
		return nil, decodeErr(d.Name(), CorruptHeader,
			"non-positive calibration: wavelength=%g pixel=%g mult=%d", wavelength, pixelSizeMM, mult)
	}

	// Fringe counts to micrometres: wavelength is in nanometres per
	// 'mult' counts.
	scale := wavelength / float64(mult) / nanoPerMicro
	step := pixelSizeMM * 1000 // mm to µm

	total := rows * cols
	data := make([]float64, total)
	valid := make([]bool, total)
	anyInvalid := false
	for i := 0; i < total; i++ {
		rv := int16(binary.LittleEndian.Uint16(body[6+i*2:]))
		if rv >= opdBadPixel || rv <= -opdBadPixel {
			anyInvalid = true
			continue
		}
		data[i] = float64(rv) * scale
		valid[i] = true
	}

	s, err := surface.New(data, rows, cols, step, step)
	if err != nil {
		return nil, &DecodeError{Format: d.Name(), Kind: CorruptHeader, Msg: "decoded grid invalid", Err: err}
	}
	if anyInvalid {
		s.Valid = valid
	}
	s.Meta = surface.Metadata{
		Instrument:   "Wyko interferometer",
		SourceFormat: d.Name(),
		TextEncoding: "utf-8",
		ZUnit:        "um",
	}
	return s, nil
}

func (d opdDecoder) scalarFloat32(raw []byte, b *opdBlock) (float64, error) {
	if b == nil {
		return 0, decodeErr(d.Name(), CorruptHeader, "missing calibration block")
	}
	if b.typ != opdTypeFloat32 || b.length < 4 {
		return 0, decodeErr(d.Name(), CorruptHeader, "block %q is not a float scalar", b.name)
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(raw[b.offset:]))
	return float64(v), nil
}

func (d opdDecoder) scalarInt16(raw []byte, b *opdBlock) (int, error) {
	if b == nil {
		return 0, decodeErr(d.Name(), CorruptHeader, "missing calibration block")
	}
	if b.typ != opdTypeInt16Sc || b.length < 2 {
		return 0, decodeErr(d.Name(), CorruptHeader, "block %q is not an int16 scalar", b.name)
	}
	return int(int16(binary.LittleEndian.Uint16(raw[b.offset:]))), nil
}
