package extract

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// extractJSON flattens a JSON document into readable "path: value" lines so
// that key/value pairing context survives into the text representation.
func extractJSON(content []byte) (string, error) {
	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}

	var lines []string
	flattenJSON("", data, &lines)
	return strings.Join(lines, "\n"), nil
}

func flattenJSON(path string, v interface{}, lines *[]string) {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenJSON(joinPath(path, k), val[k], lines)
		}
	case []interface{}:
		for i, item := range val {
			flattenJSON(fmt.Sprintf("%s[%d]", path, i), item, lines)
		}
	case nil:
		*lines = append(*lines, fmt.Sprintf("%s: null", path))
	case string:
		*lines = append(*lines, fmt.Sprintf("%s: %s", path, val))
	default:
		*lines = append(*lines, fmt.Sprintf("%s: %v", path, val))
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// extractXML walks the element tree and emits "tag: text" lines, preserving
// the pairing between tags and their character data.
func extractXML(content []byte) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(content)))

	var lines []string
	var stack []string
	seen := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("invalid xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			seen = true
			stack = append(stack, t.Name.Local)
			for _, attr := range t.Attr {
				lines = append(lines, fmt.Sprintf("%s@%s: %s", strings.Join(stack, "/"), attr.Name.Local, attr.Value))
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text != "" && len(stack) > 0 {
				lines = append(lines, fmt.Sprintf("%s: %s", strings.Join(stack, "/"), text))
			}
		}
	}

	if !seen {
		return "", fmt.Errorf("invalid xml: no elements")
	}

	return strings.Join(lines, "\n"), nil
}
