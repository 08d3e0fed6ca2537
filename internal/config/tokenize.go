package config

import (
	"regexp"
	"strings"
)

// argTokenPattern matches runs of bare characters and double-quoted spans glued together.
var argTokenPattern = regexp.MustCompile(`(?:[^\s"]+|"[^"]*")+`)

// TokenizeArgs splits a raw engine argument string on whitespace, keeping double-quoted
// spans together, then strips one leading and one trailing double quote from each token.
//
//	-v --config "my profile.json"  =>  [-v --config my profile.json]
func TokenizeArgs(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	matches := argTokenPattern.FindAllString(raw, -1)
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimPrefix(m, `"`)
		m = strings.TrimSuffix(m, `"`)
		tokens = append(tokens, m)
	}
	return tokens
}
