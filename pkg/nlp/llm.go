package nlp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/ai"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultLLMMaxTokens = 512
	defaultLLMRetries   = 3
)

type llmEntity struct {
	Text  string `json:"text" jsonschema:"description=Entity text copied verbatim from the sentence"`
	Label string `json:"label" jsonschema:"description=Entity label"`
}

type llmEntities struct {
	Entities []llmEntity `json:"entities"`
}

// LLMProviderParams configures an LLMProvider.
type LLMProviderParams struct {
	Client ai.Client
	// Name overrides the provider name, defaults to "llm".
	Name string
	// MaxTokens clamps sentences before they are sent to the model.
	MaxTokens int
	Retries   int
	Backoff   time.Duration
}

// LLMProvider asks a chat model for schema constrained entity lists and maps
// the returned strings back onto the sentence.
type LLMProvider struct {
	name      string
	client    ai.Client
	enc       *tiktoken.Tiktoken
	maxTokens int
	retries   int
	backoff   time.Duration
}

func NewLLMProvider(params LLMProviderParams) (*LLMProvider, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("llm provider requires a client")
	}
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	p := &LLMProvider{
		name:      params.Name,
		client:    params.Client,
		enc:       enc,
		maxTokens: params.MaxTokens,
		retries:   params.Retries,
		backoff:   params.Backoff,
	}
	if p.name == "" {
		p.name = "llm"
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultLLMMaxTokens
	}
	if p.retries <= 0 {
		p.retries = defaultLLMRetries
	}
	if p.backoff <= 0 {
		p.backoff = time.Second
	}
	return p, nil
}

func (p *LLMProvider) Name() string {
	return p.name
}

func (p *LLMProvider) Extract(ctx context.Context, text string) ([]Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	clamped := p.clamp(text)

	res, err := util.RetryWithContext(ctx, p.retries, p.backoff, func(ctx context.Context) (llmEntities, error) {
		var out llmEntities
		err := p.client.GenerateCompletionWithFormat(
			ctx,
			"entities",
			"Biomedical entities found in a sentence",
			fmt.Sprintf(ai.EntityExtractionPrompt, clamped),
			&out,
		)
		return out, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract entities with %s: %w", p.name, err)
	}

	var spans []Span
	cursor := 0
	for _, e := range res.Entities {
		needle := strings.TrimSpace(e.Text)
		start, end, ok := locate(clamped, needle, cursor)
		if !ok {
			logger.Debug("[NLP] Model returned text not in sentence", "provider", p.name, "text", needle)
			continue
		}
		spans = append(spans, Span{
			Start: util.RuneOffset(clamped, start),
			End:   util.RuneOffset(clamped, end),
			Label: strings.ToUpper(strings.TrimSpace(e.Label)),
			Text:  clamped[start:end],
		})
		cursor = end
	}
	return spans, nil
}

// clamp cuts text to maxTokens tokens. The result is always a prefix of text
// so offsets stay valid.
func (p *LLMProvider) clamp(text string) string {
	tokens := p.enc.Encode(text, nil, nil)
	if len(tokens) <= p.maxTokens {
		return text
	}
	prefix := p.enc.Decode(tokens[:p.maxTokens])
	if strings.HasPrefix(text, prefix) {
		return prefix
	}
	return util.Truncate(text, len([]rune(prefix)))
}
