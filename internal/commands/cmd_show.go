package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/devpin-sh/devpin/internal/core"
	"github.com/devpin-sh/devpin/pkgs/printer"
)

type ShowCmd struct {
	coreFlags *core.Flags
	flags     struct {
		ResolveFollows bool
	}
}

func NewShowCmd(coreFlags *core.Flags) *ShowCmd {
	return &ShowCmd{coreFlags: coreFlags}
}

func (sc *ShowCmd) Register(app *cli.Command) *cli.Command {
	cmd := &cli.Command{
		Name:  "show",
		Usage: "print the effective manifest after import merging",
		Description: `Prints the merged manifest in canonical YAML form: every imported fragment
folded in, inputs sorted, and locators normalized. This is the document the
environment interpreter would act on.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "resolve-follows",
				Usage:       "additionally print each follows override with the url it reuses",
				Destination: &sc.flags.ResolveFollows,
			},
		},
		Action: sc.show,
	}

	app.Commands = append(app.Commands, cmd)
	return app
}

func (sc *ShowCmd) show(ctx context.Context, cmd *cli.Command) error {
	cfg, err := core.SetupEnv(sc.coreFlags.ConfigFilePath)
	if err != nil {
		return err
	}

	out, err := cfg.Canonical()
	if err != nil {
		return fmt.Errorf("failed to render manifest: %w", err)
	}

	if _, err := ctxWriter(ctx).Write(out); err != nil {
		return err
	}

	if !sc.flags.ResolveFollows {
		return nil
	}

	var trees []printer.Tree
	for _, row := range buildRows(cfg) {
		if len(row.Follows) == 0 {
			continue
		}

		tree := printer.Tree{Text: row.Name}
		for _, child := range row.Follows {
			target := cfg.Inputs[row.Name].Inputs[child].Follows

			text := fmt.Sprintf("%s -> %s", child, target)
			if resolved, ok := cfg.Inputs[target]; ok {
				text = fmt.Sprintf("%s -> %s (%s)", child, target, resolved.URL)
			}

			tree.Children = append(tree.Children, printer.Tree{Text: text})
		}
		trees = append(trees, tree)
	}

	log.Debug().Int("overrides", len(trees)).Msg("resolving follows targets")
	printer.Ctx(ctx).ListTree("Follows Resolution", trees)

	return nil
}
