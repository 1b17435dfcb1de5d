package files

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mbardeau/factura/pkg/config"
)

// encode renders a record in one of the supported on-disk formats.
// JSON and XML marshal the struct directly. YAML and markdown go
// through the record's JSON form first, so decimals and timestamps
// keep their exact textual representation in both directions.
func encode(v any, format string) ([]byte, error) {
	switch format {
	case config.FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case config.FormatYAML:
		m, err := toJSONMap(v)
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(m)
	case config.FormatMarkdown:
		m, err := toJSONMap(v)
		if err != nil {
			return nil, err
		}
		body, err := yaml.Marshal(m)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		buf.WriteString("---\n")
		buf.Write(body)
		buf.WriteString("---\n")
		return buf.Bytes(), nil
	case config.FormatXML:
		data, err := xml.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, len(xml.Header)+len(data)+1)
		out = append(out, xml.Header...)
		out = append(out, data...)
		out = append(out, '\n')
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}
}

// decode parses a record written by encode, or by a user who converted
// the file to another supported format by hand.
func decode(data []byte, format string, v any) error {
	switch format {
	case config.FormatJSON:
		return json.Unmarshal(data, v)
	case config.FormatYAML:
		return decodeYAML(data, v)
	case config.FormatMarkdown:
		fm, err := frontMatter(data)
		if err != nil {
			return err
		}
		return decodeYAML(fm, v)
	case config.FormatXML:
		return xml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unsupported file format %q", format)
	}
}

// decodeYAML reads YAML through a JSON round trip. yaml.v3 never calls
// encoding.TextUnmarshaler implementations, so decoding straight into
// the struct would break the decimal fields.
func decodeYAML(data []byte, v any) error {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func toJSONMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// frontMatter extracts the YAML block between the --- fences of a
// markdown record.
func frontMatter(data []byte) ([]byte, error) {
	s := string(data)
	if !strings.HasPrefix(s, "---") {
		return nil, errors.New("markdown record has no front matter")
	}
	parts := strings.SplitN(s, "---", 3)
	if len(parts) < 3 {
		return nil, errors.New("markdown front matter is unterminated")
	}
	return []byte(parts[1]), nil
}
