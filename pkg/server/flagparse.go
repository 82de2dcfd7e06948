package server

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// FlagParser extracts a free play value from a POST /freeplay request.
// ok is false when the parser does not recognize the input.
type FlagParser func(body []byte, query url.Values) (value bool, ok bool)

// DefaultFlagParsers is tried in order: JSON body, bare literal body, query string.
var DefaultFlagParsers = []FlagParser{
	ParseJSONBody,
	ParseLiteralBody,
	ParseQuery,
}

// ParseFreePlay runs parsers in order and returns the first recognized value.
func ParseFreePlay(parsers []FlagParser, body []byte, query url.Values) (bool, bool) {
	for _, p := range parsers {
		if v, ok := p(body, query); ok {
			return v, true
		}
	}
	return false, false
}

// ParseJSONBody accepts {"freePlay": true|false}. The key is case-sensitive
// and the value must be a JSON boolean.
func ParseJSONBody(body []byte, _ url.Values) (bool, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return false, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false, false
	}
	raw, ok := fields["freePlay"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	return v, true
}

// ParseLiteralBody accepts a body of exactly true or false, in any case.
func ParseLiteralBody(body []byte, _ url.Values) (bool, bool) {
	return parseLiteral(string(bytes.TrimSpace(body)))
}

// ParseQuery accepts freePlay=true|false. The exact name is tried first, then
// other spellings of it in sorted order, so mixed-case duplicates resolve the
// same way every time.
func ParseQuery(_ []byte, query url.Values) (bool, bool) {
	if values := query["freePlay"]; len(values) > 0 {
		return parseLiteral(values[0])
	}

	var keys []string
	for key := range query {
		if strings.EqualFold(key, "freePlay") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values := query[key]; len(values) > 0 {
			return parseLiteral(values[0])
		}
	}
	return false, false
}

func parseLiteral(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	default:
		return false, false
	}
}
