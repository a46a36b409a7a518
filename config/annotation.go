package config

import (
	"strconv"
	"strings"
)

// annotationPrefix marks the single-line comment directly above a context
// struct as an askama template declaration — Go's stand-in for the
// attribute-macro annotation of spec §6.
const annotationPrefix = "askama:template"

// Annotation is the parsed form of a `//askama:template ...` comment.
type Annotation struct {
	Path       string
	Source     string
	Ext        string
	Print      string
	Escape     string
	Syntax     string
	Whitespace string
	Block      string
}

// ParseAnnotationComment strips a leading "//" plus the annotationPrefix
// from line and parses the remaining `key="value"` pairs. It returns
// ok == false for any comment that is not an askama annotation, so callers
// can scan every comment in a file uniformly.
func ParseAnnotationComment(line string, structName string) (Annotation, bool, error) {
	text := strings.TrimPrefix(strings.TrimSpace(line), "//")
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, annotationPrefix) {
		return Annotation{}, false, nil
	}
	rest := strings.TrimSpace(strings.TrimPrefix(text, annotationPrefix))

	fields, err := splitKeyValuePairs(rest)
	if err != nil {
		return Annotation{}, true, &Error{Message: structName + ": " + err.Error()}
	}

	var a Annotation
	for k, v := range fields {
		switch k {
		case "path":
			a.Path = v
		case "source":
			a.Source = v
		case "ext":
			a.Ext = v
		case "print":
			a.Print = v
		case "escape":
			a.Escape = v
		case "syntax":
			a.Syntax = v
		case "whitespace":
			a.Whitespace = v
		case "block":
			a.Block = v
		default:
			return Annotation{}, true, &Error{Message: structName + ": unknown annotation field " + k}
		}
	}

	if (a.Path == "") == (a.Source == "") {
		return Annotation{}, true, &Error{Message: structName + ": exactly one of path= or source= is required"}
	}
	if a.Source != "" && a.Ext == "" {
		return Annotation{}, true, &Error{Message: structName + ": ext= is required when source= is set"}
	}
	return a, true, nil
}

// splitKeyValuePairs parses a sequence of `key="value"` pairs separated by
// whitespace, using strconv.Unquote per value so escape sequences inside the
// string behave like any other Go string literal.
func splitKeyValuePairs(s string) (map[string]string, error) {
	out := map[string]string{}
	i := 0
	for i < len(s) {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i >= len(s) {
			break
		}
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return nil, &Error{Message: "expected key=\"value\""}
		}
		key := strings.TrimSpace(s[i : i+eq])
		pos := i + eq + 1
		if pos >= len(s) || s[pos] != '"' {
			return nil, &Error{Message: "value for " + key + " must be a quoted string"}
		}
		end := pos + 1
		escaped := false
		for end < len(s) {
			if escaped {
				escaped = false
			} else if s[end] == '\\' {
				escaped = true
			} else if s[end] == '"' {
				break
			}
			end++
		}
		if end >= len(s) {
			return nil, &Error{Message: "unterminated string for " + key}
		}
		quoted := s[pos : end+1]
		value, err := strconv.Unquote(quoted)
		if err != nil {
			return nil, &Error{Message: "invalid string for " + key + ": " + err.Error()}
		}
		out[key] = value
		i = end + 1
	}
	return out, nil
}
