package commands

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/devpin-sh/devpin/internal/core"
	"github.com/devpin-sh/devpin/pkgs/printer"
)

type FmtCmd struct {
	coreFlags *core.Flags
	flags     struct {
		Check bool
	}
}

func NewFmtCmd(coreFlags *core.Flags) *FmtCmd {
	return &FmtCmd{coreFlags: coreFlags}
}

func (fc *FmtCmd) Register(app *cli.Command) *cli.Command {
	cmd := &cli.Command{
		Name:  "fmt",
		Usage: "rewrite the manifest in canonical form",
		Description: `Rewrites the manifest file with sorted inputs, a fixed key order, and
normalized locator strings. Only the named file is touched; imported
fragments are formatted by running fmt against them directly.

Comments are not preserved; keep commented-out entries in imported
fragments if you rely on them.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "check",
				Usage:       "exit non-zero if the file is not canonical, without rewriting",
				Destination: &fc.flags.Check,
			},
		},
		Action: fc.format,
	}

	app.Commands = append(app.Commands, cmd)
	return app
}

func (fc *FmtCmd) format(ctx context.Context, cmd *cli.Command) error {
	cfg, err := core.SetupFile(fc.coreFlags.ConfigFilePath)
	if err != nil {
		return err
	}

	original, err := os.ReadFile(cfg.Path())
	if err != nil {
		return err
	}

	formatted, err := cfg.Canonical()
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	if bytes.Equal(original, formatted) {
		log.Debug().Str("path", cfg.Path()).Msg("already canonical")
		return nil
	}

	if fc.flags.Check {
		return fmt.Errorf("%s is not in canonical form", cfg.Path())
	}

	if err := renameio.WriteFile(cfg.Path(), formatted, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.Path(), err)
	}

	printer.Ctx(ctx).StatusList("Format", []printer.StatusListItem{
		{Ok: true, Status: fmt.Sprintf("rewrote %s", cfg.Path())},
	})

	return nil
}
