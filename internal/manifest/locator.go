package manifest

import (
	"fmt"
	"net/url"
	"strings"
)

type LocatorType string

const (
	TypeGitHub    LocatorType = "github"
	TypeGitLab    LocatorType = "gitlab"
	TypeSourceHut LocatorType = "sourcehut"
	TypeGit       LocatorType = "git"
	TypePath      LocatorType = "path"
	TypeTarball   LocatorType = "tarball"
	TypeIndirect  LocatorType = "indirect"
)

// Locator is the parsed form of an input url. Which fields are set depends
// on the type: forge locators carry Owner/Repo, git and tarball locators
// carry URL, path locators carry Path, and indirect (registry) locators
// carry ID.
type Locator struct {
	Type  LocatorType
	ID    string
	Owner string
	Repo  string
	Ref   string
	Rev   string
	Host  string
	Dir   string
	Path  string
	URL   string
}

// ParseLocator parses an input url string into its structured form.
//
// Supported shapes:
//
//	github:owner/repo[/ref-or-rev][?dir=..&host=..]
//	gitlab:owner/repo[/ref-or-rev][?dir=..&host=..]
//	sourcehut:~owner/repo[/ref-or-rev][?dir=..&host=..]
//	git+https://host/repo.git[?ref=..&rev=..&dir=..]
//	tarball+https://host/src.tar.gz[?dir=..]
//	https://host/src.tar.gz (treated as tarball)
//	path:./relative/or/absolute
//	flake:name[/ref[/rev]] or bare name[/ref[/rev]] (registry reference)
func ParseLocator(raw string) (Locator, error) {
	if raw == "" {
		return Locator{}, fmt.Errorf("empty locator")
	}

	switch {
	case strings.HasPrefix(raw, "path:"):
		p := strings.TrimPrefix(raw, "path:")
		if p == "" {
			return Locator{}, fmt.Errorf("path locator %q has no path", raw)
		}
		return Locator{Type: TypePath, Path: p}, nil

	case strings.HasPrefix(raw, "git+"):
		return parseURLLocator(TypeGit, strings.TrimPrefix(raw, "git+"))

	case strings.HasPrefix(raw, "tarball+"):
		return parseURLLocator(TypeTarball, strings.TrimPrefix(raw, "tarball+"))

	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return parseURLLocator(TypeTarball, raw)

	case strings.HasPrefix(raw, "github:"):
		return parseForge(TypeGitHub, strings.TrimPrefix(raw, "github:"))

	case strings.HasPrefix(raw, "gitlab:"):
		return parseForge(TypeGitLab, strings.TrimPrefix(raw, "gitlab:"))

	case strings.HasPrefix(raw, "sourcehut:"):
		return parseForge(TypeSourceHut, strings.TrimPrefix(raw, "sourcehut:"))

	case strings.HasPrefix(raw, "flake:"):
		return parseIndirect(strings.TrimPrefix(raw, "flake:"))
	}

	// Any remaining scheme prefix is unsupported. A colon after a slash is
	// not a scheme separator (e.g. a ref containing a colon).
	if idx := strings.Index(raw, ":"); idx >= 0 && !strings.Contains(raw[:idx], "/") {
		return Locator{}, fmt.Errorf("unsupported locator type %q", raw[:idx])
	}

	return parseIndirect(raw)
}

func parseForge(typ LocatorType, rest string) (Locator, error) {
	rest, params, err := splitParams(rest)
	if err != nil {
		return Locator{}, err
	}

	segments := strings.SplitN(rest, "/", 3)
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return Locator{}, fmt.Errorf("%s locator needs owner/repo, got %q", typ, rest)
	}

	loc := Locator{
		Type:  typ,
		Owner: segments[0],
		Repo:  segments[1],
		Host:  params.Get("host"),
		Dir:   params.Get("dir"),
	}

	if len(segments) == 3 && segments[2] != "" {
		if isGitRevision(segments[2]) {
			loc.Rev = segments[2]
		} else {
			loc.Ref = segments[2]
		}
	}

	// Explicit query params win over the positional ref/rev
	if ref := params.Get("ref"); ref != "" {
		loc.Ref = ref
	}
	if rev := params.Get("rev"); rev != "" {
		loc.Rev = rev
	}

	return loc, nil
}

func parseURLLocator(typ LocatorType, rest string) (Locator, error) {
	u, err := url.Parse(rest)
	if err != nil {
		return Locator{}, fmt.Errorf("invalid %s locator url: %w", typ, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Locator{}, fmt.Errorf("%s locator %q is missing a scheme or host", typ, rest)
	}

	params := u.Query()
	loc := Locator{
		Type: typ,
		Ref:  params.Get("ref"),
		Rev:  params.Get("rev"),
		Dir:  params.Get("dir"),
	}

	// The pin parameters are carried on the Locator, not the underlying url
	params.Del("ref")
	params.Del("rev")
	params.Del("dir")
	u.RawQuery = params.Encode()
	loc.URL = u.String()

	return loc, nil
}

func parseIndirect(rest string) (Locator, error) {
	rest, params, err := splitParams(rest)
	if err != nil {
		return Locator{}, err
	}

	segments := strings.Split(rest, "/")
	if segments[0] == "" {
		return Locator{}, fmt.Errorf("registry reference %q has no name", rest)
	}

	loc := Locator{Type: TypeIndirect, ID: segments[0], Dir: params.Get("dir")}

	switch len(segments) {
	case 1:
	case 2:
		if isGitRevision(segments[1]) {
			loc.Rev = segments[1]
		} else {
			loc.Ref = segments[1]
		}
	case 3:
		loc.Ref = segments[1]
		if !isGitRevision(segments[2]) {
			return Locator{}, fmt.Errorf("registry reference %q: %q is not a revision", rest, segments[2])
		}
		loc.Rev = segments[2]
	default:
		return Locator{}, fmt.Errorf("registry reference %q has too many segments", rest)
	}

	return loc, nil
}

// String renders the canonical text form of the locator. Parsing the result
// yields an equal Locator; `devpin fmt` rewrites every url through this.
func (l Locator) String() string {
	switch l.Type {
	case TypeGitHub, TypeGitLab, TypeSourceHut:
		s := fmt.Sprintf("%s:%s/%s", l.Type, l.Owner, l.Repo)
		switch {
		case l.Rev != "":
			s += "/" + l.Rev
		case l.Ref != "":
			s += "/" + l.Ref
		}
		return s + encodeParams(map[string]string{"dir": l.Dir, "host": l.Host})

	case TypeGit:
		return "git+" + l.URL + encodeParams(map[string]string{"ref": l.Ref, "rev": l.Rev, "dir": l.Dir})

	case TypeTarball:
		return "tarball+" + l.URL + encodeParams(map[string]string{"dir": l.Dir})

	case TypePath:
		return "path:" + l.Path

	case TypeIndirect:
		s := l.ID
		if l.Ref != "" {
			s += "/" + l.Ref
		}
		if l.Rev != "" {
			s += "/" + l.Rev
		}
		return s + encodeParams(map[string]string{"dir": l.Dir})
	}

	return ""
}

func splitParams(rest string) (string, url.Values, error) {
	base, query, found := strings.Cut(rest, "?")
	if !found {
		return base, url.Values{}, nil
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return "", nil, fmt.Errorf("invalid locator parameters %q: %w", query, err)
	}

	return base, params, nil
}

func encodeParams(params map[string]string) string {
	values := url.Values{}
	for key, val := range params {
		if val != "" {
			values.Set(key, val)
		}
	}

	if len(values) == 0 {
		return ""
	}

	// Encode sorts keys, keeping the rendering deterministic
	return "?" + values.Encode()
}

// isGitRevision reports whether s looks like a full 40-character git sha
func isGitRevision(s string) bool {
	if len(s) != 40 {
		return false
	}

	for _, r := range s {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHex {
			return false
		}
	}

	return true
}
