package commands

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/devpin-sh/devpin/internal/core"
	"github.com/devpin-sh/devpin/internal/manifest"
	"github.com/devpin-sh/devpin/pkgs/printer"
)

// starterInputs are the curated pins offered during interactive init.
var starterInputs = []struct {
	Name string
	URL  string
}{
	{"nixpkgs", "github:NixOS/nixpkgs/nixos-24.05"},
	{"nixpkgs-unstable", "github:NixOS/nixpkgs/nixpkgs-unstable"},
	{"devenv", "github:cachix/devenv"},
	{"flake-utils", "github:numtide/flake-utils"},
	{"home-manager", "github:nix-community/home-manager/release-24.05"},
}

// followsNixpkgs lists starter inputs that should reuse the nixpkgs pin
// when both are selected.
var followsNixpkgs = map[string]bool{
	"devenv":       true,
	"home-manager": true,
}

type InitCmd struct {
	coreFlags *core.Flags
	flags     struct {
		Force         bool
		NoInteractive bool
	}
}

func NewInitCmd(coreFlags *core.Flags) *InitCmd {
	return &InitCmd{coreFlags: coreFlags}
}

func (ic *InitCmd) Register(app *cli.Command) *cli.Command {
	cmd := &cli.Command{
		Name:  "init",
		Usage: "create a starter manifest",
		Description: `Writes a starter manifest to the configured path (devpin.yml by default).

By default the inputs to pin are selected interactively. With --no-interactive
the manifest is created with the nixpkgs pin only.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "overwrite an existing manifest",
				Destination: &ic.flags.Force,
			},
			&cli.BoolFlag{
				Name:        "no-interactive",
				Usage:       "skip the input selection form",
				Destination: &ic.flags.NoInteractive,
			},
		},
		Action: ic.init,
	}

	app.Commands = append(app.Commands, cmd)
	return app
}

func (ic *InitCmd) init(ctx context.Context, cmd *cli.Command) error {
	path := ic.coreFlags.ConfigFilePath

	if _, err := os.Stat(path); err == nil && !ic.flags.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}

	selected := []string{"nixpkgs"}
	allowUnfree := false

	if !ic.flags.NoInteractive {
		options := make([]huh.Option[string], 0, len(starterInputs))
		for _, input := range starterInputs {
			opt := huh.NewOption(fmt.Sprintf("%s (%s)", input.Name, input.URL), input.Name)
			if input.Name == "nixpkgs" {
				opt = opt.Selected(true)
			}
			options = append(options, opt)
		}

		form := huh.NewForm(huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Select inputs to pin").
				Options(options...).
				Value(&selected),
			huh.NewConfirm().
				Title("Allow unfree packages?").
				Value(&allowUnfree),
		))

		if err := form.Run(); err != nil {
			return err
		}
	}

	m := ic.buildManifest(selected, allowUnfree)

	out, err := m.Canonical()
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	if err := renameio.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Debug().Str("path", path).Strs("inputs", selected).Msg("manifest written")

	printer.Ctx(ctx).StatusList("Init", []printer.StatusListItem{
		{Ok: true, Status: fmt.Sprintf("wrote %s with %d input(s)", path, len(selected))},
	})

	return nil
}

func (ic *InitCmd) buildManifest(selected []string, allowUnfree bool) *manifest.Manifest {
	m := &manifest.Manifest{
		Inputs:      map[string]manifest.Input{},
		AllowUnfree: allowUnfree,
	}

	hasNixpkgs := slices.Contains(selected, "nixpkgs")

	for _, starter := range starterInputs {
		if !slices.Contains(selected, starter.Name) {
			continue
		}

		input := manifest.Input{URL: starter.URL}
		if hasNixpkgs && followsNixpkgs[starter.Name] {
			input.Inputs = map[string]manifest.Override{
				"nixpkgs": {Follows: "nixpkgs"},
			}
		}

		m.Inputs[starter.Name] = input
	}

	return m
}
