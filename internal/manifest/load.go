package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"dario.cat/mergo"
	"filippo.io/age"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/devpin-sh/devpin/pkgs/fcrypt"
)

// Load reads the manifest at path and expands its import graph into a single
// merged view. Fragments are merged depth-first in declaration order with
// the importing document winning on collisions. Encrypted (.age) fragments
// are decrypted in memory using the identity configured on the root document.
func Load(path string) (*Manifest, error) {
	root, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	loader := &loader{root: root}

	visited := map[string]struct{}{root.path: {}}
	if err := loader.expand(root, []string{root.path}, visited); err != nil {
		return nil, err
	}

	return root, nil
}

// LoadFile reads and parses a single manifest document without expanding its
// imports. Used by Load for the root and by `devpin fmt`, which formats one
// file at a time.
func LoadFile(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", abs, err)
	}

	m.path = abs
	m.dir = filepath.Dir(abs)
	m.files = []string{abs}
	m.origins = map[string]string{}
	for name := range m.Inputs {
		m.origins[name] = abs
	}

	return m, nil
}

type loader struct {
	root *Manifest

	// The identity loads lazily on the first encrypted fragment; fragments
	// of one import level parse concurrently, so the init is guarded.
	identityOnce sync.Once
	identity     age.Identity
	identityErr  error
}

// expand resolves doc's imports, loads the fragments of this level
// concurrently, then recurses depth-first and merges each fragment back into
// doc. stack holds the active import chain for cycle detection; visited
// collapses diamond imports.
func (l *loader) expand(doc *Manifest, stack []string, visited map[string]struct{}) error {
	if len(doc.Imports) == 0 {
		return nil
	}

	resolver := PathResolver{configDir: doc.dir}

	var paths []string
	for _, imp := range doc.Imports {
		resolved, err := resolver.Resolve(imp)
		if err != nil {
			return fmt.Errorf("failed to resolve import %q in %s: %w", imp, doc.path, err)
		}

		if slices.Contains(stack, resolved) {
			chain := append(slices.Clone(stack), resolved)
			return fmt.Errorf("import cycle: %s", strings.Join(chain, " -> "))
		}

		if _, ok := visited[resolved]; ok {
			log.Debug().Str("file", resolved).Msg("import already loaded, skipping")
			continue
		}

		visited[resolved] = struct{}{}
		paths = append(paths, resolved)
	}

	// Read and parse this level in parallel; the indexed slice keeps merge
	// order at declaration order regardless of completion order.
	fragments := make([]*Manifest, len(paths))

	p := pool.New().WithErrors()
	for i, path := range paths {
		p.Go(func() error {
			frag, err := l.loadFragment(path)
			if err != nil {
				return err
			}

			fragments[i] = frag
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	for _, frag := range fragments {
		if err := l.expand(frag, append(stack, frag.path), visited); err != nil {
			return err
		}

		if err := doc.merge(frag); err != nil {
			return err
		}
	}

	return nil
}

func (l *loader) loadFragment(path string) (*Manifest, error) {
	if !strings.HasSuffix(path, ".age") {
		return LoadFile(path)
	}

	identity, err := l.loadIdentity()
	if err != nil {
		return nil, fmt.Errorf("cannot decrypt fragment %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	plain, err := fcrypt.DecryptBytes(data, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt fragment %s: %w", path, err)
	}

	m, err := Parse(plain)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	m.path = path
	m.dir = filepath.Dir(path)
	m.files = []string{path}
	m.origins = map[string]string{}
	for name := range m.Inputs {
		m.origins[name] = path
	}

	return m, nil
}

func (l *loader) loadIdentity() (age.Identity, error) {
	l.identityOnce.Do(func() {
		if l.root.Age.IdentityFile == "" {
			l.identityErr = fmt.Errorf("no age.identity_file configured in %s", l.root.path)
			return
		}

		resolver := PathResolver{configDir: l.root.dir}
		identityPath, err := resolver.Resolve(l.root.Age.IdentityFile)
		if err != nil {
			l.identityErr = err
			return
		}

		l.identity, l.identityErr = Age{IdentityFile: identityPath}.ReadIdentity()
	})

	return l.identity, l.identityErr
}

// merge folds a fully expanded fragment into its importing document. Inputs
// union with the importing document winning on collisions; scalars fill
// unset fields; the insecure package list appends and dedupes. Fragment
// import lists are not carried over, they were consumed during expansion.
func (m *Manifest) merge(frag *Manifest) error {
	if m.Inputs == nil && len(frag.Inputs) > 0 {
		m.Inputs = map[string]Input{}
	}

	for name, input := range frag.Inputs {
		if _, ok := m.Inputs[name]; ok {
			log.Debug().
				Str("input", name).
				Str("file", frag.Origin(name)).
				Msg("input already declared, fragment entry ignored")
			continue
		}

		m.Inputs[name] = input
		m.origins[name] = frag.Origin(name)
	}

	src := *frag
	src.Inputs = nil
	src.Imports = nil

	// Bookkeeping fields are merged by hand below
	src.path, src.dir = "", ""
	src.files = nil
	src.origins = nil

	if err := mergo.Merge(m, src, mergo.WithAppendSlice); err != nil {
		return fmt.Errorf("error merging %s: %w", frag.path, err)
	}

	m.PermittedInsecurePackages = dedupe(m.PermittedInsecurePackages)
	m.files = append(m.files, frag.files...)

	return nil
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return items
	}

	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}

	return out
}
