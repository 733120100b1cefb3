// Package pep508 parses Python dependency specifiers and evaluates their
// environment markers.
package pep508

import (
	"fmt"
	"regexp"
	"strings"
)

// Requirement is a parsed dependency specifier, e.g.
// `requests[socks] >=2.0, <3.0 ; python_version >= "3.8"`.
type Requirement struct {
	Raw       string  // original text, preserved verbatim
	Name      string  // declared (non-canonical) project name
	Extras    []string
	Specifier string  // version clauses without surrounding parens, "" when absent
	URL       string  // direct reference after '@', "" when absent
	Marker    *Marker // nil when absent
}

// ParseError reports a malformed requirement string.
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing requirement %q: %s", e.Input, e.Msg)
}

var (
	nameRe      = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	extraNameRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	canonicalRe = regexp.MustCompile(`[-_.]+`)
	clauseRe    = regexp.MustCompile(`^(===|==|!=|~=|<=|>=|<|>)\s*[A-Za-z0-9_.!+*-]+$`)
)

// CanonicalName normalizes a project name per PEP 503: lowercase, with
// runs of hyphens, underscores and dots collapsed to a single hyphen.
func CanonicalName(name string) string {
	return strings.ToLower(canonicalRe.ReplaceAllString(name, "-"))
}

// Parse parses a PEP 508 requirement string.
func Parse(raw string) (*Requirement, error) {
	rest := strings.TrimSpace(raw)
	if rest == "" {
		return nil, &ParseError{Input: raw, Msg: "empty requirement"}
	}

	req := &Requirement{Raw: raw}

	// Marker follows the first ';'. PEP 508 forbids ';' anywhere else in
	// the name/extras/specifier part.
	if i := strings.IndexByte(rest, ';'); i >= 0 {
		markerText := strings.TrimSpace(rest[i+1:])
		rest = strings.TrimSpace(rest[:i])
		if markerText == "" {
			return nil, &ParseError{Input: raw, Msg: "empty marker after ';'"}
		}
		marker, err := parseMarker(markerText)
		if err != nil {
			return nil, &ParseError{Input: raw, Msg: err.Error()}
		}
		req.Marker = marker
	}

	name := nameRe.FindString(rest)
	if name == "" {
		return nil, &ParseError{Input: raw, Msg: "missing package name"}
	}
	req.Name = name
	rest = strings.TrimSpace(rest[len(name):])

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, &ParseError{Input: raw, Msg: "unterminated extras list"}
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !extraNameRe.MatchString(extra) {
				return nil, &ParseError{Input: raw, Msg: fmt.Sprintf("invalid extra name %q", extra)}
			}
			req.Extras = append(req.Extras, extra)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	switch {
	case rest == "":
	case strings.HasPrefix(rest, "@"):
		url := strings.TrimSpace(rest[1:])
		if url == "" {
			return nil, &ParseError{Input: raw, Msg: "missing URL after '@'"}
		}
		req.URL = url
	default:
		spec := rest
		if strings.HasPrefix(spec, "(") && strings.HasSuffix(spec, ")") {
			spec = strings.TrimSpace(spec[1 : len(spec)-1])
		}
		if err := validateSpecifier(spec); err != nil {
			return nil, &ParseError{Input: raw, Msg: err.Error()}
		}
		req.Specifier = spec
	}

	return req, nil
}

func validateSpecifier(spec string) error {
	for _, clause := range strings.Split(spec, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return fmt.Errorf("empty version clause")
		}
		if !clauseRe.MatchString(clause) {
			return fmt.Errorf("invalid version clause %q", clause)
		}
	}
	return nil
}
