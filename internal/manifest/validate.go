package manifest

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single validation result. Path is the YAML path of the
// offending node within the file it came from.
type Finding struct {
	Severity Severity
	File     string
	Path     string
	Message  string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Path, f.Message)
}

// HasErrors reports whether any finding is error severity.
func HasErrors(findings []Finding) bool {
	return slices.ContainsFunc(findings, func(f Finding) bool {
		return f.Severity == SeverityError
	})
}

// Entries must look like name-version, e.g. openssl-1.1.1w
var insecurePackageShape = regexp.MustCompile(`^[A-Za-z0-9_.+-]+-[0-9][A-Za-z0-9_.+-]*$`)

// Validate checks the merged manifest and returns every finding, not just
// the first. The caller decides how severities map to exit codes.
func Validate(m *Manifest) []Finding {
	var findings []Finding

	urlsSeen := map[string]string{} // canonical url -> input name that pinned it first
	followed := followTargets(m)

	for _, name := range m.InputNames() {
		input := m.Inputs[name]
		urlPath := fmt.Sprintf("$.inputs.%s.url", name)

		if input.URL == "" {
			findings = append(findings, Finding{
				Severity: SeverityError,
				File:     m.Origin(name),
				Path:     urlPath,
				Message:  fmt.Sprintf("input %q has no url", name),
			})
		} else if loc, err := ParseLocator(input.URL); err != nil {
			findings = append(findings, Finding{
				Severity: SeverityError,
				File:     m.Origin(name),
				Path:     urlPath,
				Message:  err.Error(),
			})
		} else {
			findings = append(findings, validateLocator(m, name, loc)...)

			// A duplicate pin is only suspect when nothing follows the
			// input; a follows target earns its own entry.
			canonical := loc.String()
			if prev, ok := urlsSeen[canonical]; ok && !followed[name] {
				findings = append(findings, Finding{
					Severity: SeverityWarning,
					File:     m.Origin(name),
					Path:     urlPath,
					Message:  fmt.Sprintf("input %q pins the same source as %q", name, prev),
				})
			} else if !ok {
				urlsSeen[canonical] = name
			}
		}

		findings = append(findings, validateOverrides(m, name, input)...)
	}

	for i, pkg := range m.PermittedInsecurePackages {
		if !insecurePackageShape.MatchString(pkg) {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				File:     m.Path(),
				Path:     fmt.Sprintf("$.permittedInsecurePackages[%d]", i),
				Message:  fmt.Sprintf("%q does not look like a name-version identifier", pkg),
			})
		}
	}

	return findings
}

// validateOverrides checks every follows pin under one input against the
// merged set of top-level inputs.
func validateOverrides(m *Manifest, parent string, input Input) []Finding {
	var findings []Finding

	for _, child := range slices.Sorted(maps.Keys(input.Inputs)) {
		follows := input.Inputs[child].Follows
		path := fmt.Sprintf("$.inputs.%s.inputs.%s.follows", parent, child)

		if follows == "" {
			findings = append(findings, Finding{
				Severity: SeverityError,
				File:     m.Origin(parent),
				Path:     path,
				Message:  fmt.Sprintf("override %q has an empty follows target", child),
			})
			continue
		}

		if _, ok := m.Inputs[follows]; !ok {
			findings = append(findings, Finding{
				Severity: SeverityError,
				File:     m.Origin(parent),
				Path:     path,
				Message:  fmt.Sprintf("follows target %q is not a declared input", follows),
			})
			continue
		}

		if follows == parent {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				File:     m.Origin(parent),
				Path:     path,
				Message:  fmt.Sprintf("%q follows its own parent %q", child, parent),
			})
		}
	}

	return findings
}

// followTargets returns the set of input names referenced by any follows
// override in the merged manifest.
func followTargets(m *Manifest) map[string]bool {
	targets := map[string]bool{}
	for _, input := range m.Inputs {
		for _, override := range input.Inputs {
			if override.Follows != "" {
				targets[override.Follows] = true
			}
		}
	}

	return targets
}

func validateLocator(m *Manifest, name string, loc Locator) []Finding {
	if loc.Type != TypePath {
		return nil
	}

	var findings []Finding
	urlPath := fmt.Sprintf("$.inputs.%s.url", name)

	dir := loc.Path
	if !filepath.IsAbs(dir) && m.Dir() != "" {
		dir = filepath.Join(m.Dir(), dir)
	}

	if m.Dir() != "" {
		if rel, err := filepath.Rel(m.Dir(), dir); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				File:     m.Origin(name),
				Path:     urlPath,
				Message:  fmt.Sprintf("path locator %q points outside the manifest tree", loc.Path),
			})
		}
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		findings = append(findings, Finding{
			Severity: SeverityWarning,
			File:     m.Origin(name),
			Path:     urlPath,
			Message:  fmt.Sprintf("path locator %q does not point at a directory", loc.Path),
		})
	}

	return findings
}
