package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/xiaot623/smartdoc/internal/domain"
	"github.com/xiaot623/smartdoc/internal/protocol"
)

// newMarkdownRenderer returns a function rendering markdown for the terminal.
// With plain set, or if the renderer cannot be built, text passes through.
func newMarkdownRenderer(plain bool, width int) func(string) string {
	if plain {
		return func(s string) string { return s }
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(s string) string { return s }
	}
	return func(s string) string {
		out, err := r.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(out, "\n")
	}
}

// printer writes server frames for a human.
type printer struct {
	out    io.Writer
	render func(string) string
}

func (p *printer) frame(f *Frame) {
	switch f.Type {
	case protocol.TypeReady:
		for _, m := range f.Messages {
			p.message(m)
		}
	case protocol.TypePending:
		if f.Pending {
			fmt.Fprintln(p.out, "...")
		}
	case protocol.TypeMessage:
		if f.Message.Role == domain.RoleModel {
			p.message(f.Message)
		}
	case protocol.TypeSubject:
		fmt.Fprintf(p.out, "subject is now %s\n", f.Subject)
	case protocol.TypeCleared:
		fmt.Fprintln(p.out, "conversation cleared")
	case protocol.TypeError:
		fmt.Fprintf(p.out, "error (%s): %s\n", f.Code, f.Error)
	}
}

func (p *printer) message(m domain.Message) {
	if m.Role == domain.RoleModel {
		fmt.Fprintf(p.out, "[model] %s\n", p.render(m.Text))
		return
	}
	fmt.Fprintf(p.out, "[%s] %s\n", m.Role, m.Text)
}
