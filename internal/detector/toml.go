package detector

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

var (
	tomlScalarLine = regexp.MustCompile(`^([A-Za-z0-9_-]+)\s*=\s*("(?:[^"\\]|\\.)*")\s*$`)
	tomlPattern    = regexp.MustCompile(`(?:^|[\s{,])pattern\s*=\s*("(?:[^"\\]|\\.)*")`)
	tomlStatement  = regexp.MustCompile(`^(?:\[.*\]|[A-Za-z0-9_.'"-]+\s*=)`)
)

// parseTOMLSubset understands only top-level `key = "value"` assignments and
// every `pattern = "value"` occurrence (one route each, wherever it appears).
// Tables, arrays of tables and non-string scalars are skipped, never rejected.
// ok is false when no line looks like a TOML assignment or table header.
func parseTOMLSubset(data []byte) (doc map[string]any, ok bool) {
	doc = map[string]any{}
	var routes []any
	topLevel := true

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(stripTOMLComment(scanner.Text()))
		if line == "" {
			continue
		}
		if tomlStatement.MatchString(line) {
			ok = true
		}
		if strings.HasPrefix(line, "[") {
			topLevel = false
		}

		for _, m := range tomlPattern.FindAllStringSubmatch(line, -1) {
			if v, err := strconv.Unquote(m[1]); err == nil {
				routes = append(routes, map[string]any{"pattern": v})
			}
		}

		if !topLevel {
			continue
		}
		m := tomlScalarLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.Unquote(m[2])
		if err != nil {
			continue
		}
		if m[1] == "pattern" {
			continue
		}
		if _, seen := doc[m[1]]; !seen {
			doc[m[1]] = v
		}
	}

	if len(routes) > 0 {
		doc["routes"] = routes
	}
	return doc, ok
}

// stripTOMLComment drops a trailing # comment that is not inside a string
func stripTOMLComment(line string) string {
	inString := false
	escaped := false
	for i, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case r == '#' && !inString:
			return line[:i]
		}
	}
	return line
}
