package thermoml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/ianaindex"
)

// Parse decodes a ThermoML document from reader.
func Parse(reader io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(reader)
	decoder.Strict = false
	decoder.CharsetReader = charsetReader

	document := &Document{}
	if err := decoder.Decode(document); err != nil {
		return nil, &LoadError{Err: err}
	}

	return document, nil
}

// ParseFile opens and decodes the ThermoML document at path.
func ParseFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Filename: path, Err: err}
	}
	defer file.Close()

	document, err := Parse(file)
	if err != nil {
		if loadErr, ok := err.(*LoadError); ok {
			loadErr.Filename = path
		}
		return nil, err
	}

	document.Filename = path
	return document, nil
}

// charsetReader decodes documents that declare a non-UTF-8 encoding,
// e.g. ISO-8859-1 or windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	encoding, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if encoding == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return encoding.NewDecoder().Reader(input), nil
}
