// Package namespace resolves function namespaces such as "service.function[@version]"
// into validated, ordered path segments.
//
// A Path is built one token at a time with Extend. Each call returns a new Path;
// the receiver is never modified, so partially built paths can be shared freely.
//
// Segment layout:
//
//	0  service identifier, or "" for the root namespace
//	1  function identifier             [A-Za-z0-9_-]+
//	2  version tag                     @[A-Za-z0-9.-]+   (default "@release")
//	3+ sub-path tokens                 [A-Za-z0-9_-]+
package namespace

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/acode/lib-go/errors"
)

// DefaultVersion is inserted when a path needs a version and none was given.
const DefaultVersion = "@release"

// LocalVersion routes an invocation to a locally running function server.
const LocalVersion = "@local"

var (
	nameRE    = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	versionRE = regexp.MustCompile(`^@[A-Za-z0-9.-]+$`)
	// Captures a "[@version]" annotation attached to the second dotted token.
	annotationRE = regexp.MustCompile(`^[^.]+?\.[^.]*?(\[@[^\[\]]*?\])(\.|$)`)
)

// GrammarKind distinguishes grammar violations.
type GrammarKind int

const (
	// InvalidName is a segment that does not match the name grammar
	InvalidName GrammarKind = iota
	// InvalidVersion is a version segment that does not match the version grammar
	InvalidVersion
	// MisplacedVersion is a name containing "@" outside a [@version] annotation
	MisplacedVersion
)

// GrammarError reports a token rejected while extending a path.
type GrammarError struct {
	Kind  GrammarKind
	Path  string // dotted path accepted so far
	Token string
}

func (e *GrammarError) Error() string {
	switch e.Kind {
	case InvalidVersion:
		return fmt.Sprintf("%s invalid version: %s", e.Path, e.Token)
	case MisplacedVersion:
		return fmt.Sprintf("%s invalid name: %s, please specify versions and environments with [@version]", e.Path, e.Token)
	default:
		return fmt.Sprintf("%s invalid name: %s", e.Path, e.Token)
	}
}

// Unwrap lets errors.Is match ErrInvalidNamespace.
func (e *GrammarError) Unwrap() error {
	return errors.ErrInvalidNamespace
}

// Path is an immutable sequence of namespace segments.
type Path struct {
	segments []string
}

// New builds a Path from already validated segments.
func New(segments ...string) Path {
	return Path{segments: append([]string(nil), segments...)}
}

// Parse resolves a complete namespace string. A result that addresses a
// function without naming a version gets DefaultVersion appended.
func Parse(s string) (Path, error) {
	p, err := Path{}.Extend(s)
	if err != nil {
		return Path{}, err
	}
	return p.Resolved(), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Extend appends token to path. It is the package-level form of Path.Extend.
func Extend(path Path, token string) (Path, error) {
	return path.Extend(token)
}

// Extend returns a new Path with token appended according to the positional grammar.
func (p Path) Extend(token string) (Path, error) {
	names := p.Segments()

	switch {
	case len(names) == 0 && token == "":
		return Path{segments: []string{""}}, nil

	case len(names) == 0 && strings.Contains(token, "."):
		next := p
		for _, tok := range splitDotted(token) {
			var err error
			if next, err = next.Extend(tok); err != nil {
				return Path{}, err
			}
		}
		return next, nil

	case len(names) == 2 && names[0] != "":
		if strings.HasPrefix(token, "@") {
			return appendVersion(names, token)
		}
		withVersion, err := appendVersion(names, DefaultVersion)
		if err != nil {
			return Path{}, err
		}
		return appendName(withVersion.segments, token)

	default:
		return appendName(names, token)
	}
}

// splitDotted breaks a dotted namespace string into tokens, moving a
// "[@version]" annotation into the third position.
func splitDotted(s string) []string {
	if s == "." {
		return []string{""}
	}

	m := annotationRE.FindStringSubmatch(s)
	if m == nil {
		return strings.Split(s, ".")
	}

	annotation := m[1]
	version := strings.TrimSuffix(strings.TrimPrefix(annotation, "["), "]")
	parts := strings.Split(strings.Replace(s, annotation, "", 1), ".")

	tokens := make([]string, 0, len(parts)+1)
	if len(parts) >= 2 {
		tokens = append(tokens, parts[:2]...)
		tokens = append(tokens, version)
		tokens = append(tokens, parts[2:]...)
	} else {
		tokens = append(tokens, parts...)
		tokens = append(tokens, version)
	}
	return tokens
}

func appendVersion(names []string, token string) (Path, error) {
	if !versionRE.MatchString(token) {
		return Path{}, errors.Invalid(&GrammarError{
			Kind:  InvalidVersion,
			Path:  strings.Join(names, "."),
			Token: token,
		}, "namespace", "Extend")
	}
	return Path{segments: append(names, token)}, nil
}

func appendName(names []string, token string) (Path, error) {
	if !nameRE.MatchString(token) {
		kind := InvalidName
		if strings.Contains(token, "@") {
			kind = MisplacedVersion
		}
		return Path{}, errors.Invalid(&GrammarError{
			Kind:  kind,
			Path:  strings.Join(names, "."),
			Token: token,
		}, "namespace", "Extend")
	}
	return Path{segments: append(names, token)}, nil
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsEmpty reports whether no segment has been added yet.
func (p Path) IsEmpty() bool {
	return len(p.segments) == 0
}

// IsRoot reports whether the path lives in the root namespace.
func (p Path) IsRoot() bool {
	return len(p.segments) > 0 && p.segments[0] == ""
}

// Invocable reports whether the path addresses a function.
func (p Path) Invocable() bool {
	return len(p.segments) >= 2
}

// Service returns segment 0.
func (p Path) Service() string {
	return p.segment(0)
}

// Function returns segment 1.
func (p Path) Function() string {
	return p.segment(1)
}

// Version returns segment 2 when it is a version tag.
func (p Path) Version() string {
	if v := p.segment(2); strings.HasPrefix(v, "@") {
		return v
	}
	return ""
}

// SubPath returns the continuation tokens after the version.
func (p Path) SubPath() []string {
	if len(p.segments) <= 3 {
		return nil
	}
	return append([]string(nil), p.segments[3:]...)
}

func (p Path) segment(i int) string {
	if i < len(p.segments) {
		return p.segments[i]
	}
	return ""
}

// Resolved returns the path with DefaultVersion appended when it addresses a
// service function but stops before the version segment.
func (p Path) Resolved() Path {
	if len(p.segments) == 2 && p.segments[0] != "" {
		return Path{segments: append(p.Segments(), DefaultVersion)}
	}
	return p
}

// WithVersion returns a copy of the path with segment 2 replaced.
// Paths shorter than three segments are returned unchanged.
func (p Path) WithVersion(version string) Path {
	if len(p.segments) < 3 {
		return p
	}
	segs := p.Segments()
	segs[2] = version
	return Path{segments: segs}
}

// URLPath renders the path as a URL pathname: service and function joined by
// "/", followed directly by the version and sub-path, with a trailing "/".
//
//	svc.fn[@v2].a  ->  svc/fn@v2/a/
func (p Path) URLPath() string {
	head := strings.Join(p.segments[:min(2, len(p.segments))], "/")
	if len(p.segments) <= 2 {
		return head + "/"
	}

	tail := strings.Join(p.segments[2:], "/")
	if v := p.segments[2]; v != "" && !strings.HasPrefix(v, "@") {
		tail = "/" + tail
	}
	return head + tail + "/"
}

// String renders the path in dotted form with the version bracketed.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p.segments {
		if i == 2 && strings.HasPrefix(seg, "@") {
			b.WriteString("[" + seg + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}
