package detector

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

// FormatForPath picks the parse format from a file extension
func FormatForPath(p string) (Format, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonc":
		return FormatJSONC, nil
	default:
		return 0, fmt.Errorf("unsupported config extension %q", path.Ext(p))
	}
}

// ParseFile parses data according to the extension of p
func ParseFile(p string, data []byte) (*domain.DeployConfig, error) {
	format, err := FormatForPath(p)
	if err != nil {
		return nil, err
	}
	return Parse(Candidate{Path: p, Format: format}, data)
}

// Parse decodes data in c's format and extracts the deploy config
func Parse(c Candidate, data []byte) (*domain.DeployConfig, error) {
	var doc map[string]any
	switch c.Format {
	case FormatTOML:
		var ok bool
		if doc, ok = parseTOMLSubset(data); !ok {
			return nil, fmt.Errorf("parse %s: no TOML assignments found", c.Path)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", c.Path, err)
		}
	case FormatJSONC:
		if err := json.Unmarshal(stripJSONC(data), &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", c.Path, err)
		}
	default:
		return nil, fmt.Errorf("unknown format for %s", c.Path)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse %s: top level is not an object", c.Path)
	}
	return extract(c.Path, doc), nil
}
