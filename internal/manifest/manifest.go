// Package manifest implements the devpin.yml document model: parsing,
// import merging, validation, and canonical re-rendering.
package manifest

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"filippo.io/age"
	"github.com/goccy/go-yaml"

	"github.com/devpin-sh/devpin/pkgs/fcrypt"
)

// Manifest is a single devpin.yml document. After Load it holds the merged
// view of the root document and every fragment reachable through imports.
type Manifest struct {
	Inputs                    map[string]Input `yaml:"inputs,omitempty"`
	AllowUnfree               bool             `yaml:"allowUnfree,omitempty"`
	PermittedInsecurePackages []string         `yaml:"permittedInsecurePackages,omitempty"`
	Imports                   []string         `yaml:"imports,omitempty"`
	Age                       Age              `yaml:"age,omitempty"`

	path    string            // absolute path of this document
	dir     string            // directory the document's relative import paths resolve against
	files   []string          // every file that contributed to the merged view
	origins map[string]string // input name -> file that declared it
}

// Input is a named external source pin.
type Input struct {
	URL    string              `yaml:"url"`
	Inputs map[string]Override `yaml:"inputs,omitempty"`
}

// Override redirects one of an input's transitive dependencies to reuse the
// resolution of a declared top-level input instead of fetching its own.
type Override struct {
	Follows string `yaml:"follows"`
}

// Parse decodes a manifest document. Decoding is strict: unknown fields are
// rejected, and duplicate keys (including duplicate input names) are
// rejected by the decoder's default behavior.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest

	err := yaml.UnmarshalWithOptions(data, &m,
		yaml.DisallowUnknownField(),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

// Path returns the absolute path of the root document.
func (m *Manifest) Path() string { return m.path }

// Dir returns the directory of the root document.
func (m *Manifest) Dir() string { return m.dir }

// Files returns every file that contributed to the merged view, root first.
func (m *Manifest) Files() []string {
	return slices.Clone(m.files)
}

// Origin returns the file that declared the named input.
func (m *Manifest) Origin(name string) string {
	if file, ok := m.origins[name]; ok {
		return file
	}

	return m.path
}

// InputNames returns the declared input names in sorted order.
func (m *Manifest) InputNames() []string {
	return slices.Sorted(maps.Keys(m.Inputs))
}

// EncryptedFiles returns the resolved paths of all imports that reference
// encrypted fragments (paths ending in .age).
func (m *Manifest) EncryptedFiles() []string {
	resolver := PathResolver{configDir: m.dir}

	files := []string{}
	for _, imp := range m.Imports {
		if !strings.HasSuffix(imp, ".age") {
			continue
		}

		resolved, err := resolver.Resolve(imp)
		if err != nil {
			continue
		}

		files = append(files, resolved)
	}

	return files
}

// Age configures fragment encryption. Recipients are used by `devpin
// encrypt`, the identity file by `devpin decrypt` and by the loader when an
// import names an .age fragment.
type Age struct {
	Recipients   []string `yaml:"recipients,omitempty"`
	IdentityFile string   `yaml:"identity_file,omitempty"`
}

func (a Age) ReadIdentity() (age.Identity, error) {
	identityData, err := os.ReadFile(a.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file %s: %w", a.IdentityFile, err)
	}

	// Parse the identity file, skipping comments and empty lines
	var keyLine string
	for _, line := range strings.Split(string(identityData), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			keyLine = line
			break
		}
	}

	if keyLine == "" {
		return nil, fmt.Errorf("no valid key found in identity file %s", a.IdentityFile)
	}

	identity, err := fcrypt.LoadPrivateKey(keyLine)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	return identity, nil
}
