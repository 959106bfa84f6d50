package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Gemini REST wire types, shared by the direct transport, the proxy
// transport and the proxy endpoint.

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
	SafetySettings   []geminiSafetySetting  `json:"safetySettings,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text    string `json:"text"`
				Thought bool   `json:"thought,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ErrSafetyBlocked marks a response the provider refused for content-safety reasons.
var ErrSafetyBlocked = errors.New("response blocked by safety filters")

// safetyFinishReasons are candidate finish reasons that mean the provider
// withheld the content.
var safetyFinishReasons = map[string]bool{
	"SAFETY":             true,
	"PROHIBITED_CONTENT": true,
	"BLOCKLIST":          true,
	"SPII":               true,
}

// text returns the visible text of the first candidate, or an error when the
// provider rejected the prompt or stopped the candidate for safety reasons.
func (r geminiResponse) text() (string, error) {
	if r.Error != nil {
		return "", fmt.Errorf("%s %d: %s", r.Error.Status, r.Error.Code, r.Error.Message)
	}
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt %s", ErrSafetyBlocked, r.PromptFeedback.BlockReason)
	}
	if len(r.Candidates) == 0 {
		return "", nil
	}

	c := r.Candidates[0]
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	if safetyFinishReasons[c.FinishReason] {
		return "", fmt.Errorf("%w: finish reason %s", ErrSafetyBlocked, c.FinishReason)
	}
	return b.String(), nil
}

// ExtractGeminiText decodes a complete (non-streaming) Gemini response and
// returns all of its text. The body may be a single response object or an
// array of stream chunks, which some endpoints return without alt=sse.
func ExtractGeminiText(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var chunks []geminiResponse
		if err := json.Unmarshal(body, &chunks); err != nil {
			return "", fmt.Errorf("decoding gemini response array: %w", err)
		}
		var b strings.Builder
		for _, c := range chunks {
			text, err := c.text()
			if err != nil {
				return "", err
			}
			b.WriteString(text)
		}
		return b.String(), nil
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding gemini response: %w", err)
	}
	return resp.text()
}

func newGeminiRequest(req Request) geminiRequest {
	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  RoleUser,
			Parts: []geminiPart{{Text: renderPrompt(req.System, req.User)}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Generation.Temperature,
			TopP:            req.Generation.TopP,
			TopK:            req.Generation.TopK,
			MaxOutputTokens: req.Generation.MaxOutputTokens,
		},
	}
	for _, s := range req.Safety {
		body.SafetySettings = append(body.SafetySettings, geminiSafetySetting(s))
	}
	return body
}

// renderPrompt flattens the system prompt and user message into the single
// content blob sent to backends without a separate system channel.
func renderPrompt(system, user string) string {
	if strings.TrimSpace(system) == "" {
		return user
	}
	return system + "\n\nUser: " + user
}
