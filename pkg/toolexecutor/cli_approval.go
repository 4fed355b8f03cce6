package toolexecutor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// CLIApproval prompts for tool approval on a terminal. Answers: y approves
// the call, a approves the tool for the rest of the session, anything else
// denies.
type CLIApproval struct {
	reader io.Reader
	writer io.Writer
}

// NewCLIApproval creates a terminal approval prompter
func NewCLIApproval(reader io.Reader, writer io.Writer) *CLIApproval {
	return &CLIApproval{reader: reader, writer: writer}
}

// Func returns the ApprovalFunc backed by this prompter
func (c *CLIApproval) Func() ApprovalFunc {
	return c.request
}

func (c *CLIApproval) request(ctx context.Context, tool string, args map[string]interface{}) Decision {
	c.display(tool, args)

	decisionCh := make(chan Decision, 1)
	go func() {
		decisionCh <- c.readDecision()
	}()

	select {
	case d := <-decisionCh:
		return d
	case <-ctx.Done():
		fmt.Fprintln(c.writer, "\n  Approval cancelled.")
		return Deny
	}
}

func (c *CLIApproval) display(tool string, args map[string]interface{}) {
	fmt.Fprintln(c.writer, "")
	fmt.Fprintln(c.writer, "┌─────────────────────────────────────────────┐")
	fmt.Fprintln(c.writer, "│          TOOL APPROVAL REQUIRED             │")
	fmt.Fprintln(c.writer, "└─────────────────────────────────────────────┘")
	fmt.Fprintf(c.writer, "  Tool: %s\n", tool)
	for k, v := range args {
		fmt.Fprintf(c.writer, "  %s: %v\n", k, v)
	}
	fmt.Fprint(c.writer, "\n  Approve? [y]es / [a]lways this session / [N]o: ")
}

func (c *CLIApproval) readDecision() Decision {
	scanner := bufio.NewScanner(c.reader)
	if !scanner.Scan() {
		return Deny
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))

	switch answer {
	case "y", "yes":
		return Approve
	case "a", "always":
		log.Info().Msg("Tool pre-approved for session")
		return ApproveSession
	default:
		return Deny
	}
}
