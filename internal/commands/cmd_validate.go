package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/devpin-sh/devpin/internal/core"
	"github.com/devpin-sh/devpin/internal/manifest"
	"github.com/devpin-sh/devpin/pkgs/printer"
	"github.com/devpin-sh/devpin/pkgs/styles"
)

var spinnerStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("10")) // Green

type ValidateCmd struct {
	coreFlags *core.Flags
}

func NewValidateCmd(coreFlags *core.Flags) *ValidateCmd {
	return &ValidateCmd{coreFlags: coreFlags}
}

func (vc *ValidateCmd) Register(app *cli.Command) *cli.Command {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "check the manifest and its imports for problems",
		Description: `Loads the manifest, expands its import graph, and validates the merged result.

Checks performed:
- every input has a parseable url
- every follows target names a declared top-level input
- permittedInsecurePackages entries look like name-version identifiers
- path inputs point at existing directories
- duplicate pins of the same source

Errors exit with status 1; warnings are informational.`,
		Action: vc.validate,
	}

	app.Commands = append(app.Commands, cmd)
	return app
}

func (vc *ValidateCmd) validate(ctx context.Context, cmd *cli.Command) error {
	var (
		cfg     *manifest.Manifest
		loadErr error
	)

	spin := spinner.New().
		Type(spinner.Line).
		Style(spinnerStyle).
		Title(" Loading manifest graph").
		Action(func() {
			cfg, loadErr = core.SetupEnv(vc.coreFlags.ConfigFilePath)
		})

	if err := spin.Run(); err != nil {
		return err
	}
	if loadErr != nil {
		return loadErr
	}

	findings := manifest.Validate(cfg)

	log.Debug().
		Int("files", len(cfg.Files())).
		Int("inputs", len(cfg.Inputs)).
		Int("findings", len(findings)).
		Msg("validation complete")

	p := printer.Ctx(ctx)

	var errs []printer.KeyValueError
	var warnings []string

	for _, finding := range findings {
		switch finding.Severity {
		case manifest.SeverityError:
			errs = append(errs, printer.KeyValueError{
				Key:   finding.Path,
				Value: finding.Message,
			})
		case manifest.SeverityWarning:
			warnings = append(warnings, finding.String())
		}
	}

	if len(warnings) > 0 {
		p.WithLight(styles.Warning).List("Warnings", warnings)
	}

	if len(errs) > 0 {
		p.KeyValueValidationError("Validation Errors", errs)
		return fmt.Errorf("manifest has %d validation error(s)", len(errs))
	}

	p.StatusList("Manifest", []printer.StatusListItem{
		{
			Ok: true,
			Status: fmt.Sprintf("%d input(s) across %d file(s) valid",
				len(cfg.Inputs), len(cfg.Files())),
		},
	})

	return nil
}
