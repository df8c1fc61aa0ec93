package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/devpin-sh/devpin/internal/core"
	"github.com/devpin-sh/devpin/internal/manifest"
	"github.com/devpin-sh/devpin/pkgs/printer"
)

type InputsCmd struct {
	coreFlags *core.Flags
	flags     struct {
		Tree bool
		JSON bool
	}
	expr string
}

func NewInputsCmd(coreFlags *core.Flags) *InputsCmd {
	return &InputsCmd{coreFlags: coreFlags}
}

func (ic *InputsCmd) Register(app *cli.Command) *cli.Command {
	cmd := &cli.Command{
		Name:      "inputs",
		Usage:     "list the pinned inputs of the merged manifest",
		ArgsUsage: "[expression]",
		Description: `Lists every input after import merging, optionally filtered by an expression.

 Examples:
	 devpin inputs                            # All inputs
	 devpin inputs 'type == "github"'         # Only github pins
	 devpin inputs 'name == "nixpkgs"'        # A single input
	 devpin inputs '"nixpkgs" in follows'     # Inputs that override nixpkgs
	 devpin inputs --tree                     # Inputs with their follows overrides
	 devpin inputs --json 'type == "path"'    # Machine readable output

 Expression variables:
	 - name: input name
	 - url: raw locator string
	 - type: locator type (github, gitlab, sourcehut, git, path, tarball, indirect)
	 - host: forge host override, if any
	 - follows: names of the input's overridden children`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "tree",
				Aliases:     []string{"t"},
				Usage:       "render each input with its follows overrides as a tree",
				Destination: &ic.flags.Tree,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit the matching inputs as JSON",
				Destination: &ic.flags.JSON,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := core.SetupEnv(ic.coreFlags.ConfigFilePath)
			if err != nil {
				return err
			}

			ic.expr = strings.Join(c.Args().Slice(), " ")

			log.Debug().
				Bool("tree", ic.flags.Tree).
				Bool("json", ic.flags.JSON).
				Str("expr", ic.expr).
				Msg("inputs cmd")

			return ic.run(ctx, cfg)
		},
	}

	app.Commands = append(app.Commands, cmd)
	return app
}

func (ic *InputsCmd) run(ctx context.Context, cfg *manifest.Manifest) error {
	rows, err := filterRows(buildRows(cfg), ic.expr)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		log.Debug().Str("expr", ic.expr).Msg("no inputs matching selector found")
		return nil
	}

	switch {
	case ic.flags.JSON:
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(ctxWriter(ctx), string(out))
		return err

	case ic.flags.Tree:
		trees := make([]printer.Tree, 0, len(rows))
		for _, row := range rows {
			tree := printer.Tree{Text: fmt.Sprintf("%s (%s)", row.Name, row.URL)}
			for _, child := range row.Follows {
				follows := cfg.Inputs[row.Name].Inputs[child].Follows
				tree.Children = append(tree.Children, printer.Tree{
					Text: fmt.Sprintf("%s -> %s", child, follows),
				})
			}
			trees = append(trees, tree)
		}

		printer.Ctx(ctx).ListTree("Inputs", trees)
		return nil

	default:
		// Get terminal width
		terminalWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil {
			// Fallback to a default width if unable to get terminal size
			terminalWidth = 80
		}

		items := make([]string, 0, len(rows))
		for _, row := range rows {
			items = append(items, truncate(fmt.Sprintf("%s  %s", row.Name, row.URL), terminalWidth-4))
		}

		printer.Ctx(ctx).List("Inputs", items)
		return nil
	}
}

// truncate trims a line to the given display width, never splitting a rune.
func truncate(s string, width int) string {
	if width <= 3 {
		return s
	}

	return runewidth.Truncate(s, width, "...")
}

// ctxWriter returns the deferred output writer carried in the context, or
// stdout when the command runs without one.
func ctxWriter(ctx context.Context) io.Writer {
	if w, ok := printer.GetWriter(ctx); ok {
		return w
	}

	return os.Stdout
}
