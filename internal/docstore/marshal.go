package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// resolveFields replaces placeholders ahead of encoding. ServerTimestamp
// becomes now; Delete entries are dropped from the returned set and reported
// in deleted so a merge can remove them from the stored document.
func resolveFields(fields Fields, now time.Time) (resolved Fields, deleted []string) {
	resolved = make(Fields, len(fields))
	for k, v := range fields {
		switch v {
		case ServerTimestamp:
			resolved[k] = now.UTC()
		case Delete:
			deleted = append(deleted, k)
		default:
			resolved[k] = v
		}
	}
	return resolved, deleted
}

// marshalDocument converts Fields to canonical JSON TEXT for storage.
func marshalDocument(fields Fields) (string, error) {
	data, err := MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses stored JSON TEXT back into Fields.
// Numbers are decoded via json.Number to keep int64 precision.
func unmarshalDocument(data string) (Fields, error) {
	if data == "" {
		return Fields{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	out := make(Fields, len(raw))
	for k, v := range raw {
		val, err := normalizeDecoded(v)
		if err != nil {
			return nil, fmt.Errorf("unmarshal document: field %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

func normalizeDecoded(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %q", val.String())
		}
		return n, nil
	case []any:
		for i, elem := range val {
			n, err := normalizeDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			val[i] = n
		}
		return val, nil
	case map[string]any:
		for k, elem := range val {
			n, err := normalizeDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			val[k] = n
		}
		return val, nil
	default:
		return val, nil
	}
}
