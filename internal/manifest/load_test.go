package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"

	"github.com/devpin-sh/devpin/pkgs/fcrypt"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoad_MergesImports(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "devpin.yml"), `
inputs:
  nixpkgs:
    url: github:NixOS/nixpkgs/nixos-24.05
permittedInsecurePackages:
  - openssl-1.1.1w
imports:
  - ./fragments/extra.yml
`)

	writeFile(t, filepath.Join(dir, "fragments", "extra.yml"), `
inputs:
  nixpkgs:
    url: github:NixOS/nixpkgs/nixpkgs-unstable
  devenv:
    url: github:cachix/devenv
    inputs:
      nixpkgs:
        follows: nixpkgs
allowUnfree: true
permittedInsecurePackages:
  - openssl-1.1.1w
  - python-2.7.18.8
`)

	m, err := Load(filepath.Join(dir, "devpin.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Root declaration wins over the fragment's
	if got := m.Inputs["nixpkgs"].URL; got != "github:NixOS/nixpkgs/nixos-24.05" {
		t.Errorf("nixpkgs url = %v, want the root pin", got)
	}

	if got := m.Inputs["devenv"].URL; got != "github:cachix/devenv" {
		t.Errorf("devenv url = %v", got)
	}

	if !m.AllowUnfree {
		t.Error("AllowUnfree = false, want true from fragment")
	}

	// Lists append in declaration order and dedupe
	want := []string{"openssl-1.1.1w", "python-2.7.18.8"}
	if len(m.PermittedInsecurePackages) != len(want) {
		t.Fatalf("PermittedInsecurePackages = %v, want %v", m.PermittedInsecurePackages, want)
	}
	for i := range want {
		if m.PermittedInsecurePackages[i] != want[i] {
			t.Errorf("PermittedInsecurePackages[%d] = %v, want %v", i, m.PermittedInsecurePackages[i], want[i])
		}
	}

	if len(m.Files()) != 2 {
		t.Errorf("Files() = %v, want 2 entries", m.Files())
	}

	// Origins point at the declaring file
	if got := m.Origin("devenv"); !strings.HasSuffix(got, "extra.yml") {
		t.Errorf("Origin(devenv) = %v, want the fragment", got)
	}
	if got := m.Origin("nixpkgs"); !strings.HasSuffix(got, "devpin.yml") {
		t.Errorf("Origin(nixpkgs) = %v, want the root", got)
	}
}

func TestLoad_NestedImportsResolveRelatively(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "devpin.yml"), `
imports:
  - ./fragments/mid.yml
`)
	writeFile(t, filepath.Join(dir, "fragments", "mid.yml"), `
imports:
  - ./leaf.yml
`)
	writeFile(t, filepath.Join(dir, "fragments", "leaf.yml"), `
inputs:
  flake-utils:
    url: github:numtide/flake-utils
`)

	m, err := Load(filepath.Join(dir, "devpin.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, ok := m.Inputs["flake-utils"]; !ok {
		t.Errorf("Inputs = %v, want flake-utils from nested fragment", m.InputNames())
	}
}

func TestLoad_CycleIsAnError(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "devpin.yml"), `
imports:
  - ./other.yml
`)
	writeFile(t, filepath.Join(dir, "other.yml"), `
imports:
  - ./devpin.yml
`)

	_, err := Load(filepath.Join(dir, "devpin.yml"))
	if err == nil {
		t.Fatal("Load() expected cycle error, got nil")
	}
	if !strings.Contains(err.Error(), "import cycle") {
		t.Errorf("Load() error = %v, want import cycle", err)
	}
}

func TestLoad_DiamondImportsLoadOnce(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "devpin.yml"), `
imports:
  - ./left.yml
  - ./right.yml
`)
	writeFile(t, filepath.Join(dir, "left.yml"), `
imports:
  - ./shared.yml
`)
	writeFile(t, filepath.Join(dir, "right.yml"), `
imports:
  - ./shared.yml
`)
	writeFile(t, filepath.Join(dir, "shared.yml"), `
inputs:
  nixpkgs:
    url: github:NixOS/nixpkgs/nixos-24.05
permittedInsecurePackages:
  - openssl-1.1.1w
`)

	m, err := Load(filepath.Join(dir, "devpin.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(m.PermittedInsecurePackages) != 1 {
		t.Errorf("PermittedInsecurePackages = %v, want a single entry", m.PermittedInsecurePackages)
	}

	// root + left + right + shared
	if len(m.Files()) != 4 {
		t.Errorf("Files() = %v, want 4 entries", m.Files())
	}
}

func TestLoad_EncryptedFragment(t *testing.T) {
	dir := t.TempDir()

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("failed to generate identity: %v", err)
	}

	writeFile(t, filepath.Join(dir, "identity.txt"), identity.String()+"\n")

	var encrypted strings.Builder
	fragment := `
inputs:
  private-overlay:
    url: git+https://git.example.com/overlay.git?ref=main
`
	if err := fcrypt.EncryptReader(strings.NewReader(fragment), &encrypted, identity.Recipient()); err != nil {
		t.Fatalf("failed to encrypt fragment: %v", err)
	}
	writeFile(t, filepath.Join(dir, "secrets.yml.age"), encrypted.String())

	writeFile(t, filepath.Join(dir, "devpin.yml"), `
inputs:
  nixpkgs:
    url: github:NixOS/nixpkgs/nixos-24.05
imports:
  - ./secrets.yml.age
age:
  identity_file: ./identity.txt
`)

	m, err := Load(filepath.Join(dir, "devpin.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, ok := m.Inputs["private-overlay"]; !ok {
		t.Errorf("Inputs = %v, want private-overlay from encrypted fragment", m.InputNames())
	}
}

func TestLoad_EncryptedFragmentsAtOneLevel(t *testing.T) {
	dir := t.TempDir()

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("failed to generate identity: %v", err)
	}

	writeFile(t, filepath.Join(dir, "identity.txt"), identity.String()+"\n")

	// Sibling fragments of one import level decrypt concurrently and share
	// the lazily loaded identity.
	names := []string{"alpha", "bravo", "charlie", "delta"}
	imports := make([]string, 0, len(names))
	for _, name := range names {
		fragment := "inputs:\n  " + name + ":\n    url: github:example/" + name + "\n"

		var encrypted strings.Builder
		if err := fcrypt.EncryptReader(strings.NewReader(fragment), &encrypted, identity.Recipient()); err != nil {
			t.Fatalf("failed to encrypt fragment: %v", err)
		}

		writeFile(t, filepath.Join(dir, name+".yml.age"), encrypted.String())
		imports = append(imports, "  - ./"+name+".yml.age")
	}

	writeFile(t, filepath.Join(dir, "devpin.yml"), `
imports:
`+strings.Join(imports, "\n")+`
age:
  identity_file: ./identity.txt
`)

	m, err := Load(filepath.Join(dir, "devpin.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, name := range names {
		if _, ok := m.Inputs[name]; !ok {
			t.Errorf("Inputs = %v, missing %s", m.InputNames(), name)
		}
	}
}

func TestLoad_EncryptedFragmentWithoutIdentity(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "devpin.yml"), `
imports:
  - ./secrets.yml.age
`)
	writeFile(t, filepath.Join(dir, "secrets.yml.age"), "not really encrypted")

	_, err := Load(filepath.Join(dir, "devpin.yml"))
	if err == nil {
		t.Fatal("Load() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "identity_file") {
		t.Errorf("Load() error = %v, want missing identity_file", err)
	}
}
