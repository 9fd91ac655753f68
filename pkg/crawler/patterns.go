package crawler

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Pattern is a compiled glob pattern supporting *, ?, character
// classes and the recursive ** wildcard.
type Pattern struct {
	source string
	regex  *regexp.Regexp
}

// CompilePattern compiles a glob pattern. A leading slash anchors the
// pattern at the project root and is stripped; all matching happens on
// root-relative slash-separated paths.
func CompilePattern(pattern string) (*Pattern, error) {
	normalized := NormalizePattern(pattern)

	regex, err := globToRegex(normalized)
	if err != nil {
		return nil, err
	}

	return &Pattern{source: normalized, regex: regex}, nil
}

// Match checks if a root-relative path matches the pattern
func (p *Pattern) Match(path string) bool {
	return p.regex.MatchString(filepath.ToSlash(path))
}

// String returns the normalized pattern source
func (p *Pattern) String() string {
	return p.source
}

// Recursive reports whether the pattern contains the ** wildcard
func (p *Pattern) Recursive() bool {
	return strings.Contains(p.source, "**")
}

// recursiveShape matches patterns of the form {dir}/**/*{optional-suffix}
var recursiveShape = regexp.MustCompile(`^(.+)/\*\*/\*(\.[^/]+)?$`)

// RecursiveRoot returns the literal root directory of a
// {dir}/**/*{suffix} pattern. Recursive wildcard expansion never
// yields the root itself, so callers add it explicitly.
func (p *Pattern) RecursiveRoot() (string, bool) {
	m := recursiveShape.FindStringSubmatch(p.source)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizePattern normalizes a glob pattern to root-relative slash form
func NormalizePattern(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	pattern = strings.TrimPrefix(pattern, "./")
	pattern = strings.TrimPrefix(pattern, "/")
	return strings.TrimSuffix(pattern, "/")
}

// globToRegex converts a glob pattern to a regular expression
func globToRegex(pattern string) (*regexp.Regexp, error) {
	var regex strings.Builder
	regex.WriteString("^")

	i := 0
	for i < len(pattern) {
		switch pattern[i] {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					// **/ matches any number of directories, including none
					regex.WriteString("(.*/)?")
					i += 3
				} else {
					regex.WriteString(".*")
					i += 2
				}
			} else {
				// * matches any characters except /
				regex.WriteString("[^/]*")
				i++
			}
		case '?':
			// ? matches any single character except /
			regex.WriteString("[^/]")
			i++
		case '[':
			// Buffer the class so an unclosed bracket leaves no
			// partial expression behind.
			var class strings.Builder
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				class.WriteString("[^")
				j++
			} else {
				class.WriteString("[")
			}

			for j < len(pattern) && pattern[j] != ']' {
				if pattern[j] == '\\' && j+1 < len(pattern) {
					class.WriteByte(pattern[j])
					class.WriteByte(pattern[j+1])
					j += 2
				} else {
					class.WriteByte(pattern[j])
					j++
				}
			}

			if j < len(pattern) {
				class.WriteByte(']')
				regex.WriteString(class.String())
				i = j + 1
			} else {
				// Unclosed bracket, treat as literal
				regex.WriteString("\\[")
				i++
			}
		case '.', '+', '^', '$', '(', ')', '{', '}', '|':
			regex.WriteByte('\\')
			regex.WriteByte(pattern[i])
			i++
		default:
			regex.WriteByte(pattern[i])
			i++
		}
	}

	regex.WriteString("$")

	return regexp.Compile(regex.String())
}
