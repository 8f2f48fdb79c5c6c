package transport

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// streamDecoder decodes UTF-8 text arriving in arbitrary chunks. An incomplete
// trailing sequence is held back and prefixed to the next chunk; invalid bytes become
// U+FFFD.
type streamDecoder struct {
	t       transform.Transformer
	pending []byte
}

func newStreamDecoder() *streamDecoder {
	return &streamDecoder{t: unicode.UTF8.NewDecoder()}
}

func (d *streamDecoder) decode(chunk []byte) string {
	src := append(d.pending, chunk...)
	// each invalid byte expands to the 3 byte replacement character
	dst := make([]byte, 3*len(src)+utf8.UTFMax)

	nDst, nSrc, err := d.t.Transform(dst, src, false)
	if err != nil && !errors.Is(err, transform.ErrShortSrc) {
		// not expected with the sizing above; pass the raw bytes through
		d.pending = nil
		d.t.Reset()
		return string(src)
	}
	d.pending = append([]byte(nil), src[nSrc:]...)
	return string(dst[:nDst])
}

// buffered returns the bytes held back from the last chunk.
func (d *streamDecoder) buffered() int {
	return len(d.pending)
}
