package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/giantswarm/courier/pkg/oauth"
)

// outOfBandReceiver reads pasted codes through readline so the line can be
// edited before it is submitted.
func outOfBandReceiver() *oauth.OutOfBandReceiver {
	return &oauth.OutOfBandReceiver{
		Open:   oauth.OpenBrowser,
		Out:    os.Stderr,
		Prompt: readlinePrompt,
	}
}

func readlinePrompt(ctx context.Context, prompt string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		Stdout:          os.Stderr,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := rl.Readline()
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if errors.Is(r.err, readline.ErrInterrupt) || errors.Is(r.err, io.EOF) {
			return "", fmt.Errorf("authorization cancelled")
		}
		if r.err != nil {
			return "", r.err
		}
		return strings.TrimSpace(r.line), nil
	}
}

// confirm asks a yes/no question, defaulting to no.
func confirm(question string) (bool, error) {
	rl, err := readline.NewEx(&readline.Config{Prompt: question + " [y/N]: "})
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return false, nil
	}
	response := strings.TrimSpace(strings.ToLower(line))
	return response == "y" || response == "yes", nil
}
