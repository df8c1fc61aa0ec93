package manifest

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	data := []byte(`
inputs:
  nixpkgs:
    url: github:NixOS/nixpkgs/nixos-24.05
  devenv:
    url: github:cachix/devenv
    inputs:
      nixpkgs:
        follows: nixpkgs
allowUnfree: true
permittedInsecurePackages:
  - openssl-1.1.1w
# imports:
#   - ./extra.yml
`)

	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(m.Inputs) != 2 {
		t.Errorf("len(Inputs) = %d, want 2", len(m.Inputs))
	}

	if got := m.Inputs["nixpkgs"].URL; got != "github:NixOS/nixpkgs/nixos-24.05" {
		t.Errorf("nixpkgs url = %v", got)
	}

	if got := m.Inputs["devenv"].Inputs["nixpkgs"].Follows; got != "nixpkgs" {
		t.Errorf("devenv nixpkgs follows = %v, want nixpkgs", got)
	}

	if !m.AllowUnfree {
		t.Error("AllowUnfree = false, want true")
	}

	if len(m.PermittedInsecurePackages) != 1 || m.PermittedInsecurePackages[0] != "openssl-1.1.1w" {
		t.Errorf("PermittedInsecurePackages = %v", m.PermittedInsecurePackages)
	}

	// Commented-out entries are inert
	if len(m.Imports) != 0 {
		t.Errorf("Imports = %v, want none", m.Imports)
	}
}

func TestParse_Strict(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "duplicate input names",
			data: `
inputs:
  nixpkgs:
    url: github:NixOS/nixpkgs/nixos-24.05
  nixpkgs:
    url: github:NixOS/nixpkgs/nixpkgs-unstable
`,
		},
		{
			name: "unknown top-level field",
			data: `
inputs:
  nixpkgs:
    url: github:NixOS/nixpkgs/nixos-24.05
allowBroken: true
`,
		},
		{
			name: "allowUnfree is not a boolean",
			data: `allowUnfree: ["yes"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Parse() expected error, got nil")
			}
		})
	}
}

func TestManifest_Canonical(t *testing.T) {
	m := &Manifest{
		Inputs: map[string]Input{
			"nixpkgs": {URL: "github:NixOS/nixpkgs/nixos-24.05"},
			"devenv": {
				URL: "github:cachix/devenv?host=github.example.com&dir=src",
				Inputs: map[string]Override{
					"nixpkgs": {Follows: "nixpkgs"},
				},
			},
		},
		PermittedInsecurePackages: []string{"openssl-1.1.1w"},
	}

	out, err := m.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}

	want := strings.TrimLeft(`
inputs:
  devenv:
    url: github:cachix/devenv?dir=src&host=github.example.com
    inputs:
      nixpkgs:
        follows: nixpkgs
  nixpkgs:
    url: github:NixOS/nixpkgs/nixos-24.05
allowUnfree: false
permittedInsecurePackages:
  - openssl-1.1.1w
`, "\n")

	if string(out) != want {
		t.Errorf("Canonical() =\n%s\nwant:\n%s", out, want)
	}
}

func TestManifest_Canonical_Idempotent(t *testing.T) {
	m := &Manifest{
		Inputs: map[string]Input{
			"nixpkgs": {URL: "github:NixOS/nixpkgs/nixos-24.05"},
			"overlay": {URL: "path:./overlay"},
		},
		AllowUnfree: true,
	}

	first, err := m.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}

	reparsed, err := Parse(first)
	if err != nil {
		t.Fatalf("Parse(canonical) error = %v", err)
	}

	second, err := reparsed.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("canonical form is not stable:\n%s\nvs:\n%s", first, second)
	}
}
