package tableio

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/JonMunkholm/apcclean/internal/core"
)

// DefaultEncoding is used when no encoding is named.
const DefaultEncoding = "ISO-8859-1"

// ResolveEncoding looks up a charset by IANA name or alias ("latin1",
// "windows-1252", "utf-8"). The empty name resolves to DefaultEncoding.
func ResolveEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return charmap.ISO8859_1, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownEncoding, name)
	}
	// ianaindex knows some names it has no decoder for.
	if enc == nil {
		return nil, fmt.Errorf("%w: %q is not supported", core.ErrUnknownEncoding, name)
	}
	return enc, nil
}

// isUTF8 reports whether enc decodes UTF-8, in which case the bytes are
// passed through the sanitizer instead of a decoder.
func isUTF8(enc encoding.Encoding) bool {
	return enc == unicode.UTF8 || enc == encoding.Nop
}
