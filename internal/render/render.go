// Package render substitutes variable values into template bodies. It is a
// pure text transform: no I/O, no persistence, and it never fails — missing
// variables are reported, not raised.
package render

import "regexp"

// Placeholders look like {name}. Anything that is not an identifier inside
// braces is literal text, so JSON snippets in template bodies survive intact.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

type Result struct {
	Text    string   `json:"text"`
	Used    []string `json:"used_variables"`
	Missing []string `json:"missing_variables"`
}

// Render binds vars into body in a single pass. Substituted values are never
// re-scanned, so a value containing {token} cannot trigger a second round of
// substitution. Unresolved placeholders stay verbatim in the output.
func Render(body string, vars map[string]string) Result {
	used := make([]string, 0, 4)
	missing := make([]string, 0, 4)
	seenUsed := map[string]bool{}
	seenMissing := map[string]bool{}

	text := placeholderRe.ReplaceAllStringFunc(body, func(match string) string {
		name := match[1 : len(match)-1]
		val, ok := vars[name]
		if !ok {
			if !seenMissing[name] {
				seenMissing[name] = true
				missing = append(missing, name)
			}
			return match
		}
		if !seenUsed[name] {
			seenUsed[name] = true
			used = append(used, name)
		}
		return val
	})

	return Result{Text: text, Used: used, Missing: missing}
}

// Placeholders returns the distinct placeholder names in body, in order of
// first appearance. The template registry uses this at save time.
func Placeholders(body string) []string {
	out := make([]string, 0, 4)
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Unused returns declared variables that never appeared in the body. Feedback
// only; nothing branches on it.
func Unused(declared, used []string) []string {
	usedSet := make(map[string]bool, len(used))
	for _, u := range used {
		usedSet[u] = true
	}
	out := make([]string, 0, len(declared))
	for _, d := range declared {
		if !usedSet[d] {
			out = append(out, d)
		}
	}
	return out
}
