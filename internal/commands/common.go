// Package commands contains the CLI commands for the application
package commands

import (
	"fmt"
	"maps"
	"slices"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/devpin-sh/devpin/internal/manifest"
)

// compileExpr compiles a filter expression string once for reuse. The type()
// builtin is disabled so the locator-type variable can shadow it.
func compileExpr(code string) (*vm.Program, error) {
	if code == "" {
		code = "true" // default: match everything
	}

	return expr.Compile(code, expr.AsBool(), expr.DisableBuiltin("type"))
}

// evalCompiledExpr evaluates a pre-compiled expression with given context
func evalCompiledExpr(program *vm.Program, env map[string]any) (bool, error) {
	output, err := expr.Run(program, env)
	if err != nil {
		return false, err
	}

	// expr.AsBool() ensures output is always bool
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("expression did not evaluate to boolean, got %T", output)
	}

	return result, nil
}

// inputRow is the flattened view of one input, used both as the filter
// expression environment and as a display/JSON row.
type inputRow struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Type    string   `json:"type,omitempty"`
	Host    string   `json:"host,omitempty"`
	Follows []string `json:"follows,omitempty"`
}

func buildRows(m *manifest.Manifest) []inputRow {
	rows := make([]inputRow, 0, len(m.Inputs))

	for _, name := range m.InputNames() {
		input := m.Inputs[name]

		row := inputRow{
			Name:    name,
			URL:     input.URL,
			Follows: slices.Sorted(maps.Keys(input.Inputs)),
		}

		if loc, err := manifest.ParseLocator(input.URL); err == nil {
			row.Type = string(loc.Type)
			row.Host = loc.Host
		}

		rows = append(rows, row)
	}

	return rows
}

// filterRows keeps the rows matching the expression. Expression variables:
// name, url, type, host, follows (list of overridden child names).
func filterRows(rows []inputRow, code string) ([]inputRow, error) {
	program, err := compileExpr(code)
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}

	var matched []inputRow
	for _, row := range rows {
		enabled, err := evalCompiledExpr(program, map[string]any{
			"name":    row.Name,
			"url":     row.URL,
			"type":    row.Type,
			"host":    row.Host,
			"follows": row.Follows,
		})
		if err != nil {
			return nil, fmt.Errorf("expression evaluation failed for input %s: %w", row.Name, err)
		}

		if enabled {
			matched = append(matched, row)
		}
	}

	return matched, nil
}
