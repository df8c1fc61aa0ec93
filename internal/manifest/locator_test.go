package manifest

import (
	"testing"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Locator
		wantErr bool
	}{
		{
			name:  "github with ref",
			input: "github:NixOS/nixpkgs/nixos-24.05",
			want:  Locator{Type: TypeGitHub, Owner: "NixOS", Repo: "nixpkgs", Ref: "nixos-24.05"},
		},
		{
			name:  "github with revision",
			input: "github:NixOS/nixpkgs/8a4c17493e5c39769b79b00f1db00d3e21ebc3e1",
			want:  Locator{Type: TypeGitHub, Owner: "NixOS", Repo: "nixpkgs", Rev: "8a4c17493e5c39769b79b00f1db00d3e21ebc3e1"},
		},
		{
			name:  "github with dir param",
			input: "github:cachix/devenv?dir=src",
			want:  Locator{Type: TypeGitHub, Owner: "cachix", Repo: "devenv", Dir: "src"},
		},
		{
			name:  "gitlab with host override",
			input: "gitlab:group/project?host=gitlab.example.com",
			want:  Locator{Type: TypeGitLab, Owner: "group", Repo: "project", Host: "gitlab.example.com"},
		},
		{
			name:  "sourcehut",
			input: "sourcehut:~user/repo/main",
			want:  Locator{Type: TypeSourceHut, Owner: "~user", Repo: "repo", Ref: "main"},
		},
		{
			name:  "git with ref and rev params",
			input: "git+https://example.com/repo.git?ref=main&rev=8a4c17493e5c39769b79b00f1db00d3e21ebc3e1",
			want: Locator{
				Type: TypeGit,
				URL:  "https://example.com/repo.git",
				Ref:  "main",
				Rev:  "8a4c17493e5c39769b79b00f1db00d3e21ebc3e1",
			},
		},
		{
			name:  "tarball",
			input: "tarball+https://example.com/src.tar.gz",
			want:  Locator{Type: TypeTarball, URL: "https://example.com/src.tar.gz"},
		},
		{
			name:  "bare https url is a tarball",
			input: "https://example.com/src.tar.gz",
			want:  Locator{Type: TypeTarball, URL: "https://example.com/src.tar.gz"},
		},
		{
			name:  "path",
			input: "path:./overlay",
			want:  Locator{Type: TypePath, Path: "./overlay"},
		},
		{
			name:  "registry reference",
			input: "nixpkgs",
			want:  Locator{Type: TypeIndirect, ID: "nixpkgs"},
		},
		{
			name:  "registry reference with ref",
			input: "nixpkgs/release-24.05",
			want:  Locator{Type: TypeIndirect, ID: "nixpkgs", Ref: "release-24.05"},
		},
		{
			name:  "flake prefixed registry reference",
			input: "flake:nixpkgs/release-24.05",
			want:  Locator{Type: TypeIndirect, ID: "nixpkgs", Ref: "release-24.05"},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "unknown scheme",
			input:   "svn:owner/repo",
			wantErr: true,
		},
		{
			name:    "github missing repo",
			input:   "github:NixOS",
			wantErr: true,
		},
		{
			name:    "path without path",
			input:   "path:",
			wantErr: true,
		},
		{
			name:    "registry reference with bad revision",
			input:   "nixpkgs/main/notarevision",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocator(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLocator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseLocator() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLocator_String(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "github already canonical",
			input: "github:NixOS/nixpkgs/nixos-24.05",
			want:  "github:NixOS/nixpkgs/nixos-24.05",
		},
		{
			name:  "github param order normalized",
			input: "github:cachix/devenv?host=github.example.com&dir=src",
			want:  "github:cachix/devenv?dir=src&host=github.example.com",
		},
		{
			name:  "bare url gains tarball prefix",
			input: "https://example.com/src.tar.gz",
			want:  "tarball+https://example.com/src.tar.gz",
		},
		{
			name:  "git pin params ordered",
			input: "git+https://example.com/repo.git?rev=8a4c17493e5c39769b79b00f1db00d3e21ebc3e1&ref=main",
			want:  "git+https://example.com/repo.git?ref=main&rev=8a4c17493e5c39769b79b00f1db00d3e21ebc3e1",
		},
		{
			name:  "registry reference",
			input: "flake:nixpkgs/release-24.05",
			want:  "nixpkgs/release-24.05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocator(tt.input)
			if err != nil {
				t.Fatalf("ParseLocator() error = %v", err)
			}

			got := loc.String()
			if got != tt.want {
				t.Errorf("Locator.String() = %v, want %v", got, tt.want)
			}

			// Canonical strings parse back to the same locator
			back, err := ParseLocator(got)
			if err != nil {
				t.Fatalf("ParseLocator(canonical) error = %v", err)
			}
			if back != loc {
				t.Errorf("roundtrip mismatch: %+v != %+v", back, loc)
			}
		})
	}
}
