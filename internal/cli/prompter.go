package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// ErrInputTerminated is returned when input ends before a valid answer.
var ErrInputTerminated = errors.New("input terminated")

// Prompter asks the user questions on a terminal.
type Prompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewPrompter creates a prompter; nil reader and writer default to stdin and stdout.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{reader: NewNonBlockingReader(reader), writer: writer}
}

// Confirm asks a yes/no question. Anything but y or yes is no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(question+" [y/N]")); err != nil {
		return false, fmt.Errorf("failed to write prompt: %w", err)
	}
	answer, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ChooseDeleteStrategy asks how to handle the refs transactions still filed
// under category. Reassign is only offered when others is non-empty; the
// returned name is the chosen reassignment target.
func (p *Prompter) ChooseDeleteStrategy(ctx context.Context, category string, refs int64, others []model.Category) (model.DeleteStrategy, string, error) {
	header := fmt.Sprintf("%q has %d linked transaction(s).", category, refs)
	options := "  [B] Block: keep the category\n"
	valid := []string{"b", "c"}
	if len(others) > 0 {
		options += "  [R] Reassign them to another category\n"
		valid = append(valid, "r")
	}
	options += "  [C] Cascade: delete them with the category"

	if _, err := fmt.Fprintln(p.writer, RenderBox("Delete category", header+"\n\n"+options)); err != nil {
		return "", "", fmt.Errorf("failed to write options: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice", valid)
	if err != nil {
		return "", "", err
	}

	switch choice {
	case "r":
		target, err := p.pickCategory(ctx, others)
		if err != nil {
			return "", "", err
		}
		return model.StrategyReassign, target, nil
	case "c":
		return model.StrategyCascade, "", nil
	default:
		return model.StrategyBlock, "", nil
	}
}

func (p *Prompter) pickCategory(ctx context.Context, categories []model.Category) (string, error) {
	var b strings.Builder
	for i, c := range categories {
		fmt.Fprintf(&b, "  [%d] %s\n", i+1, c.Name)
	}
	if _, err := fmt.Fprint(p.writer, b.String()); err != nil {
		return "", fmt.Errorf("failed to write categories: %w", err)
	}

	valid := make([]string, len(categories))
	for i := range categories {
		valid[i] = strconv.Itoa(i + 1)
	}
	choice, err := p.promptChoice(ctx, "Move to", valid)
	if err != nil {
		return "", err
	}
	n, _ := strconv.Atoi(choice)
	return categories[n-1].Name, nil
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	line, err := p.reader.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		return "", ErrInputTerminated
	}
	return line, err
}

// NewProgressBar renders progress for a run of total steps to w.
func NewProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
