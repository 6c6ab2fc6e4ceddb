// Package robot reads Robot Framework output.xml reports into a result tree.
package robot

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Parse decodes a Robot Framework output.xml document.
func Parse(r io.Reader) (*Result, error) {
	var raw rawRobot

	dec := xml.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding report: %w", err)
	}

	result, err := raw.convert()
	if err != nil {
		return nil, fmt.Errorf("converting report: %w", err)
	}

	return result, nil
}

// ParseFile opens and decodes the report at path.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}
	defer func() { _ = f.Close() }()

	result, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return result, nil
}
