// Package provider defines the LLM backend interface and its implementations.
// Every backend turns a Request into the same lazy token sequence, so the chat
// pipeline never depends on a vendor's wire format.
package provider

import (
	"context"
	"iter"
)

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single turn in a conversation.
// Decoupled from any specific LLM API so callers don't import backend types.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// GenerationConfig holds sampling parameters. Zero values mean "provider default".
type GenerationConfig struct {
	Temperature       float64
	TopP              float64
	TopK              int
	MaxOutputTokens   int
	RepetitionPenalty float64
}

// DefaultGeneration returns the sampling parameters tuned for supportive,
// conversational replies.
func DefaultGeneration() GenerationConfig {
	return GenerationConfig{
		Temperature:       0.7,
		TopP:              0.95,
		TopK:              40,
		MaxOutputTokens:   500,
		RepetitionPenalty: 1.15,
	}
}

// SafetySetting is a provider-side content filter threshold for one harm category.
type SafetySetting struct {
	Category  string
	Threshold string
}

// DefaultSafetySettings blocks harassment, hate and explicit content at medium
// probability, but only blocks dangerous content at high probability so users
// can talk about self-harm and get crisis guidance instead of a refusal.
func DefaultSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
	}
}

// Request is a normalized generation request.
type Request struct {
	// Model overrides the provider's configured model when non-empty.
	Model string
	// System is the composed persona and context prompt.
	System string
	// User is the latest user message.
	User       string
	Generation GenerationConfig
	// Safety is ignored by providers without SafetySettings capability.
	Safety []SafetySetting
}

// Capabilities describes optional provider features.
type Capabilities struct {
	Streaming         bool
	SafetySettings    bool
	RepetitionPenalty bool
}

// Provider sends generation requests to an LLM backend.
type Provider interface {
	// Stream issues the request and returns the response as a lazy sequence
	// of text fragments. A non-nil error ends the sequence. Nothing is sent
	// until the sequence is ranged over, and breaking out of the loop stops
	// reading and releases the connection.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]

	// Name returns the provider name (e.g., "gemini").
	Name() string

	// Capabilities returns feature support for the provider backend.
	Capabilities() Capabilities

	// Available checks if this provider is ready to use.
	Available(ctx context.Context) error
}
