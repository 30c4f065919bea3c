package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ZaguanLabs/appshelf"
	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider implements Provider using a chat-completion model.
type OpenAIProvider struct {
	keyFunc     KeyFunc
	baseURL     string
	model       string
	temperature float32

	mu        sync.Mutex
	client    *openai.Client
	clientKey string
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	KeyFunc     KeyFunc // Credential source, consulted on every call
	Model       string  // Model to use (default: "gpt-4o-mini")
	Temperature float32 // Temperature for generation (default: 0.3)
	BaseURL     string  // Custom base URL for compatible gateways (optional)
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &OpenAIProvider{
		keyFunc:     cfg.KeyFunc,
		baseURL:     cfg.BaseURL,
		model:       model,
		temperature: temperature,
	}
}

// clientFor returns a client bound to key, rebuilding it when the key rotates.
func (p *OpenAIProvider) clientFor(key string) *openai.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil || p.clientKey != key {
		config := openai.DefaultConfig(key)
		if p.baseURL != "" {
			config.BaseURL = p.baseURL
		}
		p.client = openai.NewClientWithConfig(config)
		p.clientKey = key
	}
	return p.client
}

// Translate translates a batch of texts with one chat completion.
func (p *OpenAIProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	key := resolveKey(p.keyFunc)
	if key == "" {
		return nil, appshelf.ErrMissingCredential
	}

	resp, err := p.clientFor(key).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: p.buildUserMessage(req)},
		},
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &appshelf.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	return p.parseResponse(resp.Choices[0].Message.Content, len(req.Texts))
}

func (p *OpenAIProvider) buildSystemPrompt(req TranslateRequest) string {
	sourceName := "the source language (detect it)"
	if req.SourceLang != "" {
		sourceName = req.SourceLang.Name()
	}
	targetName := req.TargetLang.Name()

	contextText := "The content is app store copy: titles, short descriptions and feature lists."
	if req.Context != "" {
		contextText = fmt.Sprintf("The content is for: %s. Adapt the tone to be appropriate for this context.", req.Context)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are an expert native translator. You translate from %s to %s with the fluency of a native speaker.

# Context
%s

# Style Guide
- **Natural Flow**: Avoid literal translations. Rephrase so it reads naturally to a native speaker.
- **Idioms**: Replace idioms with natural %s equivalents.
- **HTML/Code Safety**: Do NOT translate HTML tags, attributes, URLs, email addresses, or content inside backticks or <code> blocks.
- **Interpolation**: Do NOT translate placeholders such as {{name}}, {count}, %%s, $1.
- **Formatting**: Preserve meaningful whitespace and line breaks.`, sourceName, targetName, contextText, targetName)

	b.WriteString(`

# Format
Return a valid JSON object with a single key "translations" containing an array of strings in the exact same order as the input.
Example: { "translations": ["translated string 1", "translated string 2"] }
- Do NOT wrap in Markdown code blocks.`)

	if len(req.ExcludedTerms) > 0 {
		b.WriteString("\n\n# Exclusions\nDo NOT translate the following terms. Keep them exactly as they appear in the source:\n- ")
		b.WriteString(strings.Join(req.ExcludedTerms, "\n- "))
	}

	return b.String()
}

func (p *OpenAIProvider) buildUserMessage(req TranslateRequest) string {
	hasContexts := false
	for _, c := range req.TextContexts {
		if c != "" {
			hasContexts = true
			break
		}
	}

	if !hasContexts {
		data, _ := json.Marshal(req.Texts)
		return string(data)
	}

	type item struct {
		Text    string `json:"text"`
		Context string `json:"context,omitempty"`
	}

	items := make([]item, len(req.Texts))
	for i, text := range req.Texts {
		items[i].Text = text
		if i < len(req.TextContexts) {
			items[i].Context = req.TextContexts[i]
		}
	}

	data, _ := json.Marshal(map[string][]item{"items": items})
	return string(data)
}

func (p *OpenAIProvider) parseResponse(content string, expectedCount int) ([]string, error) {
	var objResult map[string]interface{}
	if err := json.Unmarshal([]byte(content), &objResult); err == nil {
		if translations, ok := objResult["translations"]; ok {
			if arr, ok := translations.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}

		for _, v := range objResult {
			if arr, ok := v.([]interface{}); ok {
				return toStringSlice(arr, expectedCount)
			}
		}
	}

	var arrResult []interface{}
	if err := json.Unmarshal([]byte(content), &arrResult); err == nil {
		return toStringSlice(arrResult, expectedCount)
	}

	return nil, &appshelf.CountMismatchError{Expected: expectedCount, Got: 0}
}

func toStringSlice(arr []interface{}, expectedCount int) ([]string, error) {
	if len(arr) != expectedCount {
		return nil, &appshelf.CountMismatchError{Expected: expectedCount, Got: len(arr)}
	}

	result := make([]string, len(arr))
	for i, v := range arr {
		if s, ok := v.(string); ok {
			result[i] = s
		} else {
			result[i] = fmt.Sprintf("%v", v)
		}
	}
	return result, nil
}

// wrapOpenAIError keeps the HTTP status when the SDK reports one.
func wrapOpenAIError(err error) error {
	perr := &appshelf.ProviderError{
		Message: "OpenAI API call failed",
		Cause:   err,
	}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		perr.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		perr.StatusCode = reqErr.HTTPStatusCode
	}

	if perr.StatusCode != 0 {
		perr.Retryable = appshelf.RetryableStatus(perr.StatusCode)
	} else {
		perr.Retryable = !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return perr
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
