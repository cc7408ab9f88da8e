// FILE: lixenwraith/propcfg/naming.go
package propcfg

import (
	"strings"
	"unicode"
)

// UpperSnake converts a lower camel case name to upper snake case.
// Every upper case letter after the first character starts a new word:
// "maxVehicles" -> "MAX_VEHICLES", "someURL" -> "SOME_U_R_L".
func UpperSnake(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// defaultConstantName is the constant consulted when no explicit name is given
func defaultConstantName(property string) string {
	return "DEFAULT_" + UpperSnake(property)
}

// ancestors returns a dotted path followed by each of its prefixes, longest first:
// "a.b.c" -> ["a.b.c", "a.b", "a"]. The root path yields [""].
func ancestors(path string) []string {
	if path == "" {
		return []string{""}
	}
	out := []string{path}
	for {
		idx := strings.LastIndexByte(path, '.')
		if idx < 0 {
			return out
		}
		path = path[:idx]
		out = append(out, path)
	}
}

// splitQualified splits "ns.Type.NAME" at the last dot
func splitQualified(name string) (owner, member string) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}
