package tableio

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/JonMunkholm/apcclean/internal/core"
)

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// bomReader drops a leading UTF-8 byte order mark. Spreadsheet programs on
// Windows add one to "CSV UTF-8" exports, and csv.Reader would otherwise
// fold it into the first header name.
type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte // bytes read while checking that were not a BOM
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if !b.checked {
		b.checked = true
		var buf [3]byte
		n, err := io.ReadFull(b.r, buf[:])
		if n == 3 && buf == utf8BOM {
			n = 0
		}
		b.head = append(b.head, buf[:n]...)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces bytes that are not valid UTF-8 with '?'. A
// multi-byte rune split across two reads is held back until the next read.
// The replacement is a single byte so the data never grows in place.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte // truncated rune carried to the next read
	out     []byte // sanitized bytes that did not fit a short p
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(s.out) > 0 {
		n := copy(p, s.out)
		s.out = s.out[n:]
		return n, nil
	}
	if len(p) < utf8.UTFMax {
		buf := make([]byte, utf8.UTFMax)
		n, err := s.fill(buf)
		c := copy(p, buf[:n])
		if c < n {
			s.out = append(s.out[:0], buf[c:n]...)
			return c, nil
		}
		return c, err
	}
	return s.fill(p)
}

// fill reads into p, which must hold at least utf8.UTFMax bytes.
func (s *utf8Sanitizer) fill(p []byte) (int, error) {
	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes to hand
// out. Unless atEOF, a truncated rune at the end moves to pending.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	w := 0
	for r := 0; r < len(data); {
		c := data[r]
		if c < utf8.RuneSelf {
			data[w] = c
			w++
			r++
			continue
		}

		if !atEOF && !utf8.FullRune(data[r:]) {
			s.pending = append(s.pending, data[r:]...)
			return w
		}

		ru, size := utf8.DecodeRune(data[r:])
		if ru == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

// limitReader fails with core.ErrFileTooLarge once more than max bytes have
// been read. A max of zero or less disables the limit.
type limitReader struct {
	r    io.Reader
	max  int64
	read int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.max > 0 && l.read > l.max {
		return n, fmt.Errorf("%w: more than %d bytes", core.ErrFileTooLarge, l.max)
	}
	return n, err
}
