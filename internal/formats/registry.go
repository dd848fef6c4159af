package formats

import (
	"bytes"
	"io"

	"github.com/metrolab/toposcan/internal/surface"
)

// Decoder reads one instrument format. Detect inspects the head of the
// input (at least detectWindow bytes when available) and reports whether
// the signature matches; Decode consumes the full stream and produces a
// Surface or a *DecodeError.
type Decoder interface {
	Name() string
	Detect(head []byte) bool
	Decode(r io.Reader) (*surface.Surface, error)
}

// detectWindow is how many leading bytes Detect implementations may
// inspect. Large enough for every registered signature.
const detectWindow = 32

// registry lists decoders in signature-detection order. It is populated
// at init time and read-only afterwards, so concurrent batch decoding
// needs no locking.
var registry = []Decoder{
	surDecoder{},
	vk4Decoder{},
	opdDecoder{},
}

// Decoders returns the registered decoder names in detection order.
func Decoders() []string {
	names := make([]string, len(registry))
	for i, d := range registry {
		names[i] = d.Name()
	}
	return names
}

// Decode signature-detects the format of r and decodes it into a
// Surface. Returns ErrNotRecognized when no decoder claims the input.
func Decode(r io.Reader) (*surface.Surface, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	head := raw
	if len(head) > detectWindow {
		head = head[:detectWindow]
	}
	for _, d := range registry {
		if d.Detect(head) {
			return d.Decode(bytes.NewReader(raw))
		}
	}
	return nil, ErrNotRecognized
}
