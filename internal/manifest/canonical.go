package manifest

import (
	"maps"
	"slices"

	"github.com/goccy/go-yaml"
)

// Canonical renders the manifest in its normalized form: fixed key order,
// inputs sorted by name, and every url rewritten through its parsed locator.
// Unparseable urls are kept verbatim so formatting never destroys data;
// validation reports them separately.
func (m *Manifest) Canonical() ([]byte, error) {
	doc := yaml.MapSlice{}

	if len(m.Inputs) > 0 {
		inputs := yaml.MapSlice{}
		for _, name := range m.InputNames() {
			inputs = append(inputs, yaml.MapItem{Key: name, Value: canonicalInput(m.Inputs[name])})
		}
		doc = append(doc, yaml.MapItem{Key: "inputs", Value: inputs})
	}

	doc = append(doc, yaml.MapItem{Key: "allowUnfree", Value: m.AllowUnfree})

	if len(m.PermittedInsecurePackages) > 0 {
		doc = append(doc, yaml.MapItem{Key: "permittedInsecurePackages", Value: m.PermittedInsecurePackages})
	}

	if len(m.Imports) > 0 {
		doc = append(doc, yaml.MapItem{Key: "imports", Value: m.Imports})
	}

	if len(m.Age.Recipients) > 0 || m.Age.IdentityFile != "" {
		ageSection := yaml.MapSlice{}
		if len(m.Age.Recipients) > 0 {
			ageSection = append(ageSection, yaml.MapItem{Key: "recipients", Value: m.Age.Recipients})
		}
		if m.Age.IdentityFile != "" {
			ageSection = append(ageSection, yaml.MapItem{Key: "identity_file", Value: m.Age.IdentityFile})
		}
		doc = append(doc, yaml.MapItem{Key: "age", Value: ageSection})
	}

	return yaml.MarshalWithOptions(doc,
		yaml.Indent(2),
		yaml.IndentSequence(true),
	)
}

func canonicalInput(input Input) yaml.MapSlice {
	urlStr := input.URL
	if loc, err := ParseLocator(input.URL); err == nil {
		urlStr = loc.String()
	}

	entry := yaml.MapSlice{{Key: "url", Value: urlStr}}

	if len(input.Inputs) > 0 {
		children := yaml.MapSlice{}
		for _, child := range slices.Sorted(maps.Keys(input.Inputs)) {
			children = append(children, yaml.MapItem{
				Key:   child,
				Value: yaml.MapSlice{{Key: "follows", Value: input.Inputs[child].Follows}},
			})
		}
		entry = append(entry, yaml.MapItem{Key: "inputs", Value: children})
	}

	return entry
}
