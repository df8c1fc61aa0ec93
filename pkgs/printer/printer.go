// Package printer renders styled output for the CLI. All rendering goes
// through a Printer so output can be redirected via context (see ctx.go)
// and deferred until the command completes.
package printer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/devpin-sh/devpin/pkgs/styles"
)

type Printer struct {
	writer io.Writer
	base   styles.RenderFunc
	light  styles.RenderFunc
}

func New(writer io.Writer) *Printer {
	return &Printer{
		writer: writer,
		base:   styles.Bold,
		light:  styles.Subtle,
	}
}

// Ctx returns a copy of the printer bound to the writer stored in the
// context, or the printer unchanged when no writer is set.
func (p *Printer) Ctx(ctx context.Context) *Printer {
	w, ok := GetWriter(ctx)
	if !ok {
		return p
	}

	cp := *p
	cp.writer = w
	return &cp
}

func (p *Printer) WithBase(style styles.RenderFunc) *Printer {
	cp := *p
	cp.base = style
	return &cp
}

func (p *Printer) WithLight(style styles.RenderFunc) *Printer {
	cp := *p
	cp.light = style
	return &cp
}

func (p *Printer) println(str string) {
	_, _ = fmt.Fprintln(p.writer, str)
}

func (p *Printer) LineBreak() {
	p.println("")
}

func (p *Printer) Title(title string) {
	p.println("")
	p.println(p.base(title))
}

func (p *Printer) FatalError(err error) {
	p.println(styles.ErrorBox("Fatal Error", err.Error()))
}

func (p *Printer) List(title string, items []string) {
	p.Title(title)
	for _, item := range items {
		p.println(p.light(styles.Dot + " " + item))
	}
}

// StatusListItem is a single line in a StatusList.
type StatusListItem struct {
	Ok     bool
	Status string
}

func (p *Printer) StatusList(title string, items []StatusListItem) {
	p.Title(title)
	for _, item := range items {
		if item.Ok {
			p.println(styles.Success(styles.Check + " " + item.Status))
		} else {
			p.println(styles.Error(" " + styles.Cross + " " + item.Status))
		}
	}
}

// Tree is a node in a printed tree. Text is the node label, Children are
// rendered indented beneath it with branch guides.
type Tree struct {
	Text     string
	Children []Tree
}

func (p *Printer) ListTree(title string, list []Tree) {
	p.Title(title)
	for _, tree := range list {
		p.println(p.base(" " + tree.Text))
		p.printChildren(tree.Children, " ")
	}
}

func (p *Printer) printChildren(children []Tree, prefix string) {
	for i, child := range children {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(children)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		p.println(p.light(prefix + connector + child.Text))
		p.printChildren(child.Children, childPrefix)
	}
}

// KeyValueError is a single finding in a validation error list.
type KeyValueError struct {
	Key   string
	Value string
}

func (p *Printer) KeyValueValidationError(title string, errors []KeyValueError) {
	p.Title(title)
	for _, kv := range errors {
		key := strings.TrimSpace(kv.Key)
		p.println(styles.Error(" " + styles.Cross + " " + key))
		if kv.Value != "" {
			p.println(p.light("   " + kv.Value))
		}
	}
}
