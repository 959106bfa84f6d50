package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoInput is returned by Choose when input ends without an answer.
var ErrNoInput = errors.New("no input")

// Prompter reads answers line by line from one scanner so buffered input
// is never lost between questions.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter returns a Prompter reading from in and writing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

func (p *Prompter) readLine() (string, bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// Ask prints question and returns the trimmed answer, or def when the answer
// is empty or input is exhausted.
func (p *Prompter) Ask(question, def string) string {
	if def != "" {
		_, _ = fmt.Fprintf(p.out, "%s [%s]: ", question, def)
	} else {
		_, _ = fmt.Fprintf(p.out, "%s: ", question)
	}
	if v, ok := p.readLine(); ok && v != "" {
		return v
	}
	return def
}

func (p *Prompter) Confirm(question string, def bool) bool {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	_, _ = fmt.Fprintf(p.out, "%s [%s]: ", question, hint)
	v, _ := p.readLine()
	switch strings.ToLower(v) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return def
	}
}

// Choose prints title and a numbered list of options, then reads a 1-based
// selection and returns it 0-based. def is the 1-based default; 0 means the
// question has none.
func (p *Prompter) Choose(title string, options []string, def int) (int, error) {
	_, _ = fmt.Fprintf(p.out, "\n%s\n", title)
	for i, o := range options {
		_, _ = fmt.Fprintf(p.out, "  %d. %s\n", i+1, o)
	}

	if def > 0 {
		_, _ = fmt.Fprintf(p.out, "Select [%d]: ", def)
	} else {
		_, _ = fmt.Fprint(p.out, "Select: ")
	}
	input, ok := p.readLine()
	if input == "" {
		if def > 0 {
			return def - 1, nil
		}
		if !ok {
			return 0, ErrNoInput
		}
	}

	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > len(options) {
		return 0, fmt.Errorf("invalid selection: %q", input)
	}
	return n - 1, nil
}
