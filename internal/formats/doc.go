// Package formats decodes proprietary instrument file formats into the
// canonical surface representation.
//
// Formats are identified by signature bytes, never by file name: the
// registry probes each decoder's Detect against the head of the input
// and the first match wins. Decoders either return a complete,
// internally consistent Surface or fail atomically with a *DecodeError;
// no partially populated Surface ever escapes.
//
// Supported formats: Digital Surf (.sur, read and write), Keyence
// (.vk4), Wyko/Veeco (.opd).
//
// Header text in these formats frequently predates UTF-8. Metadata
// strings are sniffed and transcoded (see encoding.go) rather than
// assumed to be in any fixed encoding.
package formats
