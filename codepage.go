package data

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// attributeDecoder converts raw dBASE attribute bytes to UTF-8.
type attributeDecoder struct {
	// nil when the declared code page is UTF-8
	decoder *encoding.Decoder
	// true when no code page was declared
	guess bool
}

// readCodepage returns the attributeDecoder for the shapefile at 'path', as declared by its .cpg
// sidecar. Without a .cpg values that are valid UTF-8 are kept and anything else is read as ISO-8859-1.
func readCodepage(src Source, path string) (*attributeDecoder, error) {

	cpg_path := sidecarPath(path, ".cpg")

	err := ensureFile(src, cpg_path)

	if err != nil {

		if IsNotFound(err) {
			d := &attributeDecoder{
				decoder: charmap.ISO8859_1.NewDecoder(),
				guess:   true,
			}
			return d, nil
		}

		return nil, err
	}

	body, err := readAll(src, cpg_path)

	if err != nil {
		return nil, err
	}

	enc, err := codepageEncoding(string(body))

	if err != nil {
		return nil, fmt.Errorf("Failed to derive encoding from %s, %w", cpg_path, err)
	}

	d := &attributeDecoder{}

	if enc != nil {
		d.decoder = enc.NewDecoder()
	}

	return d, nil
}

// codepageEncoding resolves the contents of a .cpg file ("UTF-8", "ISO-8859-1", "1252", "88591", ...).
// A nil encoding means UTF-8.
func codepageEncoding(label string) (encoding.Encoding, error) {

	label = strings.ToLower(strings.TrimSpace(label))

	switch label {
	case "", "utf-8", "utf8", "65001":
		return nil, nil
	}

	switch {
	case strings.HasPrefix(label, "8859"):
		label = "iso-8859-" + strings.TrimLeft(strings.TrimPrefix(label, "8859"), "_-")
	case isDigits(label) && strings.HasPrefix(label, "125"):
		label = "windows-" + label
	case isDigits(label):
		label = "ibm" + label
	}

	enc, err := htmlindex.Get(label)

	if err == nil {
		return enc, nil
	}

	enc, err = ianaindex.IANA.Encoding(label)

	if err != nil {
		return nil, err
	}

	if enc == nil {
		return nil, fmt.Errorf("Unsupported code page '%s'", label)
	}

	return enc, nil
}

func isDigits(s string) bool {

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return s != ""
}

// Decode returns 'raw' as UTF-8.
func (d *attributeDecoder) Decode(raw string) (string, error) {

	if d.decoder == nil {
		return raw, nil
	}

	if d.guess && utf8.ValidString(raw) {
		return raw, nil
	}

	return d.decoder.String(raw)
}
