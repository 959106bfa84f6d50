// Package repl implements the interactive chat loop for mindful.
// It owns the conversation history and the terminal; each turn is handed to a
// Chatter, which streams tokens back as they arrive.
//
// History is capped rather than summarized. Fallback replies are never added
// to it, and the user turn that produced one is dropped so a retry does not
// duplicate it.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/hpkotak/mindful/internal/chat"
	"github.com/hpkotak/mindful/internal/provider"
)

const maxHistoryMsgs = 50

// WelcomeMessage opens every conversation as the assistant's first turn.
const WelcomeMessage = "Hi there! I'm your mental health support assistant. I'm here to listen and offer support. How are you feeling today?"

// CrisisNotice is printed after a reply to a message that looks like an emergency.
const CrisisNotice = `  Important support information:
  If you are experiencing a mental health emergency or having thoughts of
  harming yourself, please contact a crisis helpline immediately:
    - 988 Suicide & Crisis Lifeline: call or text 988 (US)
    - Crisis Text Line: text HOME to 741741
    - Call 911 or go to your nearest emergency room if you are in danger
  These services are available 24/7.`

// Chatter runs one conversational turn.
type Chatter interface {
	Run(ctx context.Context, turns []provider.Message, onToken func(string)) chat.Result
}

// turnContext scopes a context to one turn so Ctrl+C cancels the reply in
// flight instead of the process. Replaced in tests.
var turnContext = func(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

// Run starts the interactive REPL loop.
func Run(ctx context.Context, c Chatter, in io.Reader, out io.Writer) error {
	_, _ = fmt.Fprintln(out, "Mindful Chat (type 'exit' to quit, 'help' for commands)")
	_, _ = fmt.Fprintln(out)

	history := newHistory()
	_, _ = fmt.Fprintf(out, "%s\n\n", WelcomeMessage)

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "you> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				_, _ = fmt.Fprintf(out, "\nInput error: %v\n", err)
				return err
			}
			_, _ = fmt.Fprintln(out)
			break // EOF (Ctrl+D)
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch lower := strings.ToLower(input); {
		case lower == "exit" || lower == "quit":
			_, _ = fmt.Fprintln(out, "Take care of yourself. Bye!")
			return nil
		case lower == "help":
			printHelp(out)
			continue
		case lower == "clear":
			history = newHistory()
			_, _ = fmt.Fprintf(out, "\n%s\n\n", WelcomeMessage)
			continue
		case lower == "resources" || strings.HasPrefix(lower, "resources "):
			printResources(out, strings.TrimSpace(strings.TrimPrefix(lower, "resources")))
			continue
		}

		history = append(history, provider.Message{Role: provider.RoleUser, Content: input})
		if len(history) > maxHistoryMsgs {
			history = history[len(history)-maxHistoryMsgs:]
		}

		result := sendTurn(ctx, c, history, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if result.IsError {
			history = history[:len(history)-1]
			continue
		}
		history = append(history, provider.Message{Role: provider.RoleAssistant, Content: result.Response})
	}

	return nil
}

func newHistory() []provider.Message {
	return []provider.Message{{Role: provider.RoleAssistant, Content: WelcomeMessage}}
}

// sendTurn streams one reply to out and prints the fallback or crisis notice
// the result calls for.
func sendTurn(ctx context.Context, c Chatter, history []provider.Message, out io.Writer) chat.Result {
	turnCtx, stop := turnContext(ctx)
	defer stop()

	_, _ = fmt.Fprintln(out)
	streamed := false
	result := c.Run(turnCtx, history, func(tok string) {
		streamed = true
		_, _ = fmt.Fprint(out, tok)
	})
	if streamed {
		_, _ = fmt.Fprintln(out)
	}

	switch {
	case result.Cancelled:
		_, _ = fmt.Fprintf(out, "\n  (stopped) %s\n", result.Response)
	case result.IsError:
		if streamed {
			_, _ = fmt.Fprintln(out)
		}
		_, _ = fmt.Fprintln(out, result.Response)
	case !streamed:
		_, _ = fmt.Fprintln(out, result.Response)
	}

	if result.IsEmergency {
		_, _ = fmt.Fprintf(out, "\n%s\n", CrisisNotice)
	}
	_, _ = fmt.Fprintln(out)
	return result
}

func printHelp(out io.Writer) {
	_, _ = fmt.Fprint(out, `
  Commands:
    resources [topic]  list support resources (anxiety, depression, crisis, stress)
    clear              start a new conversation
    exit, quit         end the session (Ctrl+D also works)

  Press Ctrl+C while a reply is streaming to stop it.
`)
}
