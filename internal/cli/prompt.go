package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Prompter asks numbered multiple-choice questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Choose prints the question and its options, numbered from 1, and returns
// the 0-based index of the chosen option. Invalid input is asked again.
func (p *Prompter) Choose(question string, options []string) (int, error) {
	fmt.Fprintf(p.out, "\n%s\n", question)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	for {
		fmt.Fprintf(p.out, "Choice [1-%d]: ", len(options))
		input, err := p.in.ReadString('\n')
		input = strings.TrimSpace(input)
		if input != "" {
			if n, convErr := strconv.Atoi(input); convErr == nil && n >= 1 && n <= len(options) {
				return n - 1, nil
			}
			fmt.Fprintf(p.out, "Please enter a number between 1 and %d.\n", len(options))
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read input")
			return 0, fmt.Errorf("failed to read choice: %w", err)
		}
	}
}
