package filter

import (
	"regexp"
	"strings"
	"sync"
)

// compiled caches pattern -> *regexp.Regexp.
var compiled sync.Map

// Match reports whether name matches the wildcard pattern.
func Match(name, pattern string) bool {
	return compile(pattern).MatchString(name)
}

// MatchAny reports whether name matches at least one of patterns.
func MatchAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if Match(name, p) {
			return true
		}
	}
	return false
}

func compile(pattern string) *regexp.Regexp {
	if re, ok := compiled.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}

	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')

	// (?s): '*' also matches newlines.
	re := regexp.MustCompile("(?s)" + b.String())
	actual, _ := compiled.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}
