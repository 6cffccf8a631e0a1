package vcard

import (
	"encoding/base64"
	"io"
	"mime/quotedprintable"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/ianaindex"
)

// transform applies at most one decoding step to a raw property value,
// selected by the first matching parameter. The matching parameter is
// consumed; all other parameters are passed through unchanged. raw reports
// that the value was decoded to bytes and therefore must not be unescaped.
//
// Values that were not decoded to bytes get RFC 6350 §3.4 backslash
// unescaping applied after the parameter scan.
func transform(value string, params []string) (out string, residual []string, raw bool) {
	out = value
	applied := false
	for _, p := range params {
		if !applied {
			lower := strings.ToLower(p)
			switch {
			case strings.Contains(lower, "base64"), lower == "encoding=b":
				out = decodeBase64(out)
				raw = true
				applied = true
				continue
			case strings.Contains(lower, "quoted-printable"):
				out = decodeQuotedPrintable(out)
				raw = true
				applied = true
				continue
			case strings.HasPrefix(lower, "charset="):
				// Conversion failures are swallowed: the value stays as-is
				// but the parameter is still consumed.
				out = recodeCharset(out, p[len("charset="):])
				applied = true
				continue
			}
		}
		residual = append(residual, p)
	}

	if !raw {
		out = unescape(out)
	}
	return out, residual, raw
}

// unescape resolves the RFC 6350 §3.4 escape sequences. Comma and semicolon
// escapes are replaced before backslash escapes so that an already resolved
// backslash is never unescaped a second time.
func unescape(s string) string {
	s = strings.ReplaceAll(s, `\,`, ",")
	s = strings.ReplaceAll(s, `\;`, ";")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

func decodeBase64(s string) string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	b, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return s
	}
	return string(b)
}

func decodeQuotedPrintable(s string) string {
	b, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(s)))
	if err != nil && len(b) == 0 {
		return s
	}
	return string(b)
}

// recodeCharset converts a value from the named character set to UTF-8,
// returning the input unchanged when the charset is unknown or the
// conversion fails.
func recodeCharset(s, name string) string {
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil || enc == nil {
		enc, err = ianaindex.IANA.Encoding(name)
	}
	if err != nil || enc == nil {
		return s
	}
	out, err := enc.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}
