package seo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ExtractJSONLD returns the plain-object values of a schema_jsonld field in
// key order. The field may hold the object itself or a JSON string encoding
// it; anything else yields no objects.
func ExtractJSONLD(raw json.RawMessage) []map[string]any {
	if isNull(raw) {
		return nil
	}

	data := bytes.TrimSpace(raw)
	if data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return nil
		}
		data = bytes.TrimSpace([]byte(encoded))
		if len(data) == 0 {
			return nil
		}
	}

	values, err := objectValues(data)
	if err != nil {
		return nil
	}

	var out []map[string]any
	for _, value := range values {
		value = bytes.TrimSpace(value)
		if len(value) == 0 || value[0] != '{' {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(value, &obj); err != nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}

// objectValues returns the raw values of a top-level JSON object in the
// order a browser enumerates them: a repeated key keeps its first position
// but takes its last value, and array-index keys come first in ascending
// numeric order.
func objectValues(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("seo: schema_jsonld is not an object")
	}

	type member struct {
		key   string
		value json.RawMessage
	}
	var members []member
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if i, ok := seen[key]; ok {
			members[i].value = value
			continue
		}
		seen[key] = len(members)
		members = append(members, member{key: key, value: value})
	}

	sort.SliceStable(members, func(i, j int) bool {
		a, aIndex := arrayIndex(members[i].key)
		b, bIndex := arrayIndex(members[j].key)
		if aIndex && bIndex {
			return a < b
		}
		return aIndex && !bIndex
	})

	values := make([]json.RawMessage, len(members))
	for i, m := range members {
		values[i] = m.value
	}
	return values, nil
}

// arrayIndex reports whether key is a canonical array index: a decimal
// integer below 2^32-1 with no sign or leading zero.
func arrayIndex(key string) (uint64, bool) {
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 || strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return n, true
}
