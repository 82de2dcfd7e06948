package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// DirectiveKey is the config key controlling free play.
const DirectiveKey = "IsFreePlay"

var directivePattern = regexp.MustCompile(`(?i)(?:#[ \t]*)?\b` + DirectiveKey + `[ \t]*=[ \t]*(true|false)\b`)

// RewriteDirective sets one IsFreePlay directive in blob to value: the first
// uncommented occurrence, or the first commented one when every occurrence is
// commented out, which is then uncommented. Other occurrences and indentation
// are kept. found is false when blob has no directive, in which case blob is
// returned unchanged.
func RewriteDirective(blob []byte, value bool) (out []byte, found bool) {
	loc := directiveIndex(blob)
	if loc == nil {
		return blob, false
	}

	line := DirectiveKey + " = " + strconv.FormatBool(value)
	out = make([]byte, 0, len(blob)-(loc[1]-loc[0])+len(line))
	out = append(out, blob[:loc[0]]...)
	out = append(out, line...)
	out = append(out, blob[loc[1]:]...)
	return out, true
}

func directiveIndex(blob []byte) []int {
	all := directivePattern.FindAllIndex(blob, -1)
	if len(all) == 0 {
		return nil
	}
	for _, loc := range all {
		if blob[loc[0]] != '#' {
			return loc
		}
	}
	return all[0]
}

// ReadDirective returns the value of the first uncommented directive in blob.
func ReadDirective(blob []byte) (value bool, ok bool) {
	for _, m := range directivePattern.FindAllSubmatch(blob, -1) {
		if m[0][0] == '#' {
			continue
		}
		return strings.EqualFold(string(m[1]), "true"), true
	}
	return false, false
}
