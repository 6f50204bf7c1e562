package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"storygen/internal/render"
)

// prompter asks for values that were not given as flags.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// value returns current when it is set, otherwise asks until a non-empty line arrives.
func (p *prompter) value(current, label string) (string, error) {
	if v := strings.TrimSpace(current); v != "" {
		return v, nil
	}
	for {
		fmt.Fprintf(p.out, "%s: ", label)
		line, err := p.in.ReadString('\n')
		if v := strings.TrimSpace(line); v != "" {
			return v, nil
		}
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("no answer for %q", label)
		}
		if err != nil {
			return "", fmt.Errorf("read answer: %w", err)
		}
	}
}

type ui struct {
	w    io.Writer
	warn lipgloss.Style
	ok   lipgloss.Style
}

func newUI(w io.Writer) *ui {
	r := lipgloss.NewRenderer(w)
	return &ui{
		w:    w,
		warn: r.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		ok:   r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

func errorStyle(w io.Writer) lipgloss.Style {
	return lipgloss.NewRenderer(w).NewStyle().Foreground(lipgloss.Color("196"))
}

func (u *ui) story(rendered string, f render.Format, pretty bool) {
	if pretty && f == render.FormatMarkdown {
		if out, err := renderMarkdown(rendered); err == nil {
			rendered = out
		}
	}
	fmt.Fprint(u.w, rendered)
}

func (u *ui) malformed(raw string) {
	fmt.Fprintln(u.w, u.warn.Render("The model did not return valid JSON. Raw response:"))
	fmt.Fprintln(u.w, raw)
}

func (u *ui) saved(path string) {
	fmt.Fprintln(u.w)
	fmt.Fprintln(u.w, u.ok.Render("Story saved to: "+path))
}

func (u *ui) archived(id string) {
	fmt.Fprintln(u.w, u.ok.Render("Story archived as: "+id))
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
