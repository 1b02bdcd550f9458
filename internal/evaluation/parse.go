package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/rfp-responder/internal/rfp"
)

var errEmptyResponse = errors.New("empty response")

// stripFences removes markdown code fences wrapped around model output.
// Backticks inside the payload are kept.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	if nl := strings.IndexByte(raw, '\n'); nl != -1 {
		raw = raw[nl+1:]
	} else {
		raw = strings.TrimPrefix(raw, "```")
	}
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// firstObject returns the first balanced {...} block of s.
// Braces inside JSON strings are ignored.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// decodeObject strips fences, isolates the first JSON object and decodes it.
func decodeObject(raw string) (map[string]any, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, errEmptyResponse
	}
	if obj, ok := firstObject(cleaned); ok {
		cleaned = obj
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if data == nil {
		return nil, errors.New("response is not a json object")
	}
	return data, nil
}

func coerceFloat(v any) float64 {
	if f := rfp.ParseAmount(v); f != nil {
		return *f
	}
	return math.NaN()
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// optionalString maps blank values to nil so "not stated" survives decoding.
func optionalString(v any) *string {
	s := coerceString(v)
	if s == "" {
		return nil
	}
	return &s
}

func coerceStrings(v any) []string {
	var out []string
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, entry := range val {
			if s := coerceString(entry); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func coerceMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	return m
}

func coerceList(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
