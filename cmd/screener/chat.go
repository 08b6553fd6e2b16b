// Copyright 2024 Candidate Screener Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/your-org/candidate-screener/internal/candidate"
	"github.com/your-org/candidate-screener/internal/config"
	"github.com/your-org/candidate-screener/internal/conversation"
	"gopkg.in/yaml.v3"
)

// Export formats for the candidate record
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

const chatHelp = "Commands: /status shows progress, /export prints the record, /restart starts over, /quit leaves."

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

func newChatCmd() *cobra.Command {
	var (
		format  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run a screening interactively in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}

			cfg, err := config.LoadWithOptions(config.LoadOptions{ConfigPath: configPath, ValidateRequired: true})
			if err != nil {
				return err
			}

			// keep logs off the conversation
			logCfg := cfg.Logging
			if logCfg.Output == "" || logCfg.Output == "stdout" {
				logCfg.Output = "stderr"
			}
			if !verbose {
				logCfg.Level = "error"
			}
			logger, _, err := newLogger(logCfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runChat(ctx, a.conversations, cmd.InOrStdin(), cmd.OutOrStdout(), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Candidate record format printed at the end (text, json, yaml)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Write logs to stderr at the configured level")
	return cmd
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use text, json or yaml", format)
	}
}

// chatStyles renders the terminal transcript
type chatStyles struct {
	title     lipgloss.Style
	bold      lipgloss.Style
	assistant lipgloss.Style
	prompt    lipgloss.Style
	muted     lipgloss.Style
	record    lipgloss.Style
}

func newChatStyles(out io.Writer) chatStyles {
	r := lipgloss.NewRenderer(out)
	return chatStyles{
		title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#9b59b6")),
		bold:      r.NewStyle().Bold(true),
		assistant: r.NewStyle().PaddingLeft(2),
		prompt:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#27ae60")),
		muted:     r.NewStyle().Italic(true).Foreground(lipgloss.Color("#95a5a6")),
		record: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#95a5a6")).
			Padding(0, 1),
	}
}

// markdown renders **bold** spans of an assistant message
func (s chatStyles) markdown(text string) string {
	return boldPattern.ReplaceAllStringFunc(text, func(m string) string {
		return s.bold.Render(boldPattern.FindStringSubmatch(m)[1])
	})
}

// runChat drives one terminal screening through manager until the input ends
// or the user quits
func runChat(ctx context.Context, manager *conversation.Manager, in io.Reader, out io.Writer, format string) error {
	styles := newChatStyles(out)
	say := func(text string) {
		_, _ = fmt.Fprintln(out, styles.assistant.Render(styles.markdown(text)))
		_, _ = fmt.Fprintln(out)
	}
	note := func(text string) {
		_, _ = fmt.Fprintln(out, styles.muted.Render(text))
	}

	_, _ = fmt.Fprintln(out, styles.title.Render("Candidate Screening Assistant"))
	note(chatHelp)
	_, _ = fmt.Fprintln(out)

	turn, err := manager.Start(ctx)
	if err != nil {
		return err
	}
	sessionID := turn.SessionID
	say(turn.Reply)

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, styles.prompt.Render("You: "))
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/help":
			note(chatHelp)
			continue
		case "/restart":
			turn, err := manager.Restart(ctx, sessionID)
			if err != nil {
				return err
			}
			say(turn.Reply)
			continue
		case "/status":
			if err := printStatus(ctx, manager, sessionID, out, styles); err != nil {
				return err
			}
			continue
		case "/export":
			if err := printRecord(ctx, manager, sessionID, out, format, styles); err != nil {
				return err
			}
			continue
		}

		turn, err := manager.Reply(ctx, sessionID, line)
		switch {
		case errors.Is(err, conversation.ErrSessionConcluded):
			note("This screening has concluded. Type /restart to screen another candidate or /quit to leave.")
			continue
		case errors.Is(err, conversation.ErrEmptyMessage):
			continue
		case err != nil:
			return err
		}

		say(turn.Reply)

		switch turn.Outcome {
		case conversation.OutcomeCompleted:
			if err := printRecord(ctx, manager, sessionID, out, format, styles); err != nil {
				return err
			}
			note("Type /restart to screen another candidate or /quit to leave.")
		case conversation.OutcomeExited:
			note("Type /restart to begin again or /quit to leave.")
		}
	}
}

func printStatus(ctx context.Context, manager *conversation.Manager, sessionID string, out io.Writer, styles chatStyles) error {
	view, err := manager.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Progress: %d%%\n", view.Percent)
	for _, p := range view.Progress {
		fmt.Fprintf(&b, "  %-8s %s\n", p.State, p.Label)
	}
	for _, f := range candidate.Fields() {
		if value, ok := view.Collected[string(f)]; ok {
			fmt.Fprintf(&b, "  %s: %s\n", f, value)
		}
	}
	_, _ = fmt.Fprintln(out, styles.muted.Render(strings.TrimRight(b.String(), "\n")))
	return nil
}

func printRecord(ctx context.Context, manager *conversation.Manager, sessionID string, out io.Writer, format string, styles chatStyles) error {
	export, err := manager.Candidate(ctx, sessionID)
	if err != nil {
		return err
	}

	data, err := formatExport(export, format)
	if err != nil {
		return err
	}
	if format == formatText {
		_, _ = fmt.Fprintln(out, styles.record.Render(string(data)))
		return nil
	}
	_, err = out.Write(data)
	return err
}

// formatExport renders the candidate record in the requested format
func formatExport(export *conversation.CandidateExport, format string) ([]byte, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		return append(data, '\n'), nil
	case formatYAML:
		data, err := yaml.Marshal(export)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		return data, nil
	}

	rec := export.Candidate
	experience := ""
	if rec.Experience != nil {
		experience = candidate.FormatExperience(*rec.Experience) + " years"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name:       %s\n", rec.Name)
	fmt.Fprintf(&b, "Email:      %s\n", rec.Email)
	fmt.Fprintf(&b, "Phone:      %s\n", rec.Phone)
	fmt.Fprintf(&b, "Experience: %s\n", experience)
	fmt.Fprintf(&b, "Position:   %s\n", rec.Position)
	fmt.Fprintf(&b, "Location:   %s\n", rec.Location)
	fmt.Fprintf(&b, "Tech stack: %s\n", strings.Join(rec.TechStack, ", "))
	if len(rec.Questions) > 0 {
		b.WriteString("Questions:\n")
		for i, q := range rec.Questions {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, q)
		}
	}
	if !export.Complete {
		missing := make([]string, len(export.Missing))
		for i, f := range export.Missing {
			missing[i] = string(f)
		}
		fmt.Fprintf(&b, "Missing:    %s\n", strings.Join(missing, ", "))
	}
	return []byte(strings.TrimRight(b.String(), "\n")), nil
}
