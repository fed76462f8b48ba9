package fetcher

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding determines the character encoding of a manifest body. A byte
// order mark or a charset parameter in contentType is authoritative; otherwise
// valid UTF-8 is assumed to be UTF-8 and anything else falls back to the
// encoding sniffed by x/net/html/charset.
func DetectEncoding(body []byte, contentType string) (name string, certain bool) {
	_, name, certain = charset.DetermineEncoding(body, contentType)
	if certain {
		return name, true
	}
	if utf8.Valid(body) {
		return "utf-8", false
	}
	return name, false
}

// ConvertToUTF8 transcodes body to UTF-8 and strips a UTF-8 byte order mark
func ConvertToUTF8(body []byte, contentType string) ([]byte, error) {
	name, _ := DetectEncoding(body, contentType)
	if name == "utf-8" {
		return bytes.TrimPrefix(body, utf8BOM), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", name, err)
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s content: %w", name, err)
	}
	return bytes.TrimPrefix(out, utf8BOM), nil
}
