// Package chat runs one conversational turn end to end: it scans the latest
// user message, composes the prompt, streams the provider's reply through a
// caller callback and folds every failure into a safe fallback message.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpkotak/mindful/internal/logging"
	"github.com/hpkotak/mindful/internal/prompt"
	"github.com/hpkotak/mindful/internal/provider"
	"github.com/hpkotak/mindful/internal/safety"
)

// ErrEmptyResponse is reported when a stream completes without any text.
var ErrEmptyResponse = errors.New("empty response from model")

// Result is the outcome of one Run. When IsError is false, Response is the
// concatenation of every token passed to the callback.
type Result struct {
	Response    string
	IsEmergency bool
	IsError     bool
	Cancelled   bool
	Kind        ErrorKind
	// Partial holds text streamed before a failure. Response never includes it.
	Partial string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithModel overrides the provider's configured model.
func WithModel(model string) Option {
	return func(a *Assembler) { a.model = model }
}

// WithGeneration sets the sampling parameters.
func WithGeneration(g provider.GenerationConfig) Option {
	return func(a *Assembler) { a.generation = g }
}

// WithSafetySettings sets provider-side content filters.
func WithSafetySettings(s []provider.SafetySetting) Option {
	return func(a *Assembler) { a.safety = s }
}

// WithTimeout bounds each Run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Assembler) { a.timeout = d }
}

// Assembler turns a conversation into a streamed reply from one provider.
// It holds no per-request state and is safe for sequential reuse.
type Assembler struct {
	provider   provider.Provider
	model      string
	generation provider.GenerationConfig
	safety     []provider.SafetySetting
	timeout    time.Duration
}

// New creates an Assembler with default generation and safety settings.
func New(p provider.Provider, opts ...Option) *Assembler {
	a := &Assembler{
		provider:   p,
		generation: provider.DefaultGeneration(),
		safety:     provider.DefaultSafetySettings(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type callbackPanic struct {
	value any
}

func (e *callbackPanic) Error() string {
	return fmt.Sprintf("token callback panicked: %v", e.value)
}

// Run sends turns to the provider and invokes onToken for every text
// fragment in arrival order. It always returns a Result with a non-empty
// Response; no error escapes.
func (a *Assembler) Run(ctx context.Context, turns []provider.Message, onToken func(string)) Result {
	start := time.Now()
	userMessage := lastUserTurn(turns)
	var history []provider.Message
	if len(turns) > 0 {
		history = turns[:len(turns)-1]
	}
	emergency := safety.Scan(userMessage)

	req := provider.Request{
		Model:      a.model,
		System:     prompt.Compose(userMessage, history),
		User:       userMessage,
		Generation: a.generation,
		Safety:     a.safety,
	}

	runCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var (
		response  strings.Builder
		tokens    int
		streamErr error
	)
	for tok, err := range a.provider.Stream(runCtx, req) {
		if err != nil {
			streamErr = err
			break
		}
		if runCtx.Err() != nil {
			break
		}
		if tok == "" {
			continue
		}
		response.WriteString(tok)
		tokens++
		if err := deliver(onToken, tok); err != nil {
			streamErr = err
			break
		}
	}

	log := logging.L().With(
		zap.String("provider", a.provider.Name()),
		zap.String("model", a.model),
		zap.Bool("emergency", emergency),
		zap.Strings("categories", categoryNames(safety.Detect(userMessage))),
		zap.Int("tokens", tokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	if errors.Is(ctx.Err(), context.Canceled) {
		log.Info("chat turn cancelled")
		return Result{
			Response:  CancelledMessage,
			IsError:   true,
			Cancelled: true,
			Kind:      KindDefault,
			Partial:   response.String(),
		}
	}

	if streamErr == nil && runCtx.Err() != nil {
		streamErr = fmt.Errorf("%s request: %w", a.provider.Name(), runCtx.Err())
	}
	if streamErr == nil && response.Len() == 0 {
		streamErr = ErrEmptyResponse
	}
	if streamErr != nil {
		kind := Classify(streamErr)
		var cbPanic *callbackPanic
		if errors.As(streamErr, &cbPanic) {
			kind = KindDefault
		}
		log.Warn("chat turn failed", zap.String("kind", kind.String()), zap.Error(streamErr))
		return Result{
			Response: kind.Message(),
			IsError:  true,
			Kind:     kind,
			Partial:  response.String(),
		}
	}

	log.Info("chat turn completed")
	return Result{
		Response:    response.String(),
		IsEmergency: emergency,
	}
}

// deliver calls onToken, converting a panic into an error.
func deliver(onToken func(string), tok string) (err error) {
	if onToken == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &callbackPanic{value: r}
		}
	}()
	onToken(tok)
	return nil
}

func lastUserTurn(turns []provider.Message) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == provider.RoleUser {
			return turns[i].Content
		}
	}
	return ""
}

func categoryNames(cats []safety.Category) []string {
	if len(cats) == 0 {
		return nil
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.String()
	}
	return names
}
