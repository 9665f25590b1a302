// parser.go - Extracts a JSON record from free-form model replies
//
// Generative models do not reliably answer with bare JSON. Parse tries the
// whole reply, then the first fenced code block, then the first balanced
// {...} substring. The first candidate that is a valid JSON object wins.

package parser

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Record is a parsed JSON object.
type Record struct {
	root gjson.Result
}

// Parse returns the first JSON object found in raw, or nil.
func Parse(raw string) *Record {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	// Strategy 1: the whole reply
	if rec := parseObject(text); rec != nil {
		return rec
	}

	// Strategy 2: first fenced code block
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		if rec := parseObject(m[1]); rec != nil {
			return rec
		}
	}

	// Strategy 3: balanced braces
	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := matchBrace(text, start)
		if end < 0 {
			break
		}
		if rec := parseObject(text[start : end+1]); rec != nil {
			return rec
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil
}

func parseObject(candidate string) *Record {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || candidate[0] != '{' {
		return nil
	}
	if !gjson.Valid(candidate) {
		// Models sometimes emit literal newlines or tabs inside strings
		candidate = fixJSONEscaping(candidate)
		if !gjson.Valid(candidate) {
			return nil
		}
	}
	root := gjson.Parse(candidate)
	if !root.IsObject() {
		return nil
	}
	return &Record{root: root}
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
// Braces inside JSON strings are ignored.
func matchBrace(s string, start int) int {
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
				return i
			}
		}
	}
	return -1
}

// fixJSONEscaping escapes raw control characters found inside string literals.
func fixJSONEscaping(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	escaped := false
	for _, r := range s {
		if !inString {
			if r == '"' {
				inString = true
			}
			b.WriteRune(r)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\':
			escaped = true
			b.WriteRune(r)
		case r == '"':
			inString = false
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			b.WriteString(`\u00`)
			b.WriteByte("0123456789abcdef"[r>>4])
			b.WriteByte("0123456789abcdef"[r&0xf])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Has reports whether key is present and not null.
func (r *Record) Has(key string) bool {
	v := r.root.Get(key)
	return v.Exists() && v.Type != gjson.Null
}

// String returns a trimmed string field; numbers are formatted.
func (r *Record) String(key string) string {
	v := r.root.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// Float returns a numeric field, accepting numbers and amount-like strings.
func (r *Record) Float(key string) (float64, bool) {
	v := r.root.Get(key)
	switch v.Type {
	case gjson.Number:
		return v.Float(), true
	case gjson.String:
		return ParseAmount(v.String())
	default:
		return 0, false
	}
}

// Records returns the object elements of an array field.
func (r *Record) Records(key string) []*Record {
	v := r.root.Get(key)
	if !v.IsArray() {
		return nil
	}
	var out []*Record
	for _, item := range v.Array() {
		if item.IsObject() {
			out = append(out, &Record{root: item})
		}
	}
	return out
}
