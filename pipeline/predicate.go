package pipeline

import (
	"regexp"
	"strings"
)

// Predicate decides whether a Filter forwards an item.
type Predicate[T any] func(item T) bool

// Contains matches lines containing pattern as a plain substring.
func Contains(pattern string) Predicate[string] {
	return func(line string) bool { return strings.Contains(line, pattern) }
}

// HasPrefix matches lines starting with prefix.
func HasPrefix(prefix string) Predicate[string] {
	return func(line string) bool { return strings.HasPrefix(line, prefix) }
}

// Matches matches lines the regular expression finds a match in.
func Matches(re *regexp.Regexp) Predicate[string] {
	return re.MatchString
}

// Not inverts p.
func Not[T any](p Predicate[T]) Predicate[T] {
	return func(item T) bool { return !p(item) }
}
