package oauth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// OutOfBandRedirectURL is the redirect used when the settings carry none and
// the code is pasted back by the user.
const OutOfBandRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// PromptFunc asks the user for a line of input.
type PromptFunc func(ctx context.Context, prompt string) (string, error)

// OutOfBandReceiver shows the authorization URL and reads the code or
// redirect URL pasted by the user. In AuthorizeModeOutOfBandAuto the URL is
// opened in the browser first.
type OutOfBandReceiver struct {
	Open   func(url string) error
	Out    io.Writer
	Prompt PromptFunc
}

func (r *OutOfBandReceiver) ReceiveCode(ctx context.Context, mode AuthorizeMode, req *AuthorizationRequest) (map[string]string, error) {
	out := r.Out
	if out == nil {
		out = os.Stderr
	}
	prompt := r.Prompt
	if prompt == nil {
		prompt = StdinPrompt(os.Stdin, out)
	}

	redirect := req.Settings.RedirectURL
	if redirect == "" {
		redirect = OutOfBandRedirectURL
	}
	authURL, err := req.URL(redirect)
	if err != nil {
		return nil, err
	}

	opened := false
	if mode == AuthorizeModeOutOfBandAuto && r.Open != nil {
		opened = r.Open(authURL) == nil
	}
	if !opened {
		fmt.Fprintf(out, "Open the following URL in your browser to authorize:\n\n  %s\n\n", authURL)
	}

	line, err := prompt(ctx, "Paste the code or the URL you were redirected to: ")
	if err != nil {
		return nil, err
	}
	values := ParseCallback(line)
	if len(values) == 0 {
		return nil, fmt.Errorf("oauth: no authorization code entered")
	}
	return values, nil
}

// StdinPrompt returns a PromptFunc reading lines from in. Reading is not
// interruptible; when ctx ends first the pending read is abandoned.
func StdinPrompt(in io.Reader, out io.Writer) PromptFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, prompt string) (string, error) {
		fmt.Fprint(out, prompt)

		type result struct {
			line string
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			line, err := reader.ReadString('\n')
			if err == io.EOF && line != "" {
				err = nil
			}
			ch <- result{line: strings.TrimSpace(line), err: err}
		}()

		select {
		case res := <-ch:
			return res.line, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
