package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"graphmind/internal/pipeline"
	apperrors "graphmind/pkg/errors"
	"graphmind/pkg/logger"
)

const maxRetries = 3

// LLMAdapter implements pipeline.Extractor over an OpenAI-compatible
// chat-completion API
type LLMAdapter struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter. baseURL may point at any
// OpenAI-compatible endpoint (OpenAI, LiteLLM, a local proxy).
func NewLLMAdapter(baseURL, apiKey, model string) *LLMAdapter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &LLMAdapter{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.Get(),
	}
}

const entityExtractionPrompt = `You are an information extraction system.
Extract the entities (people, organizations, places, products, concepts)
mentioned in the text. Respond with JSON of the form:
{"entities": [{"name": "...", "type": "...", "description": "...", "attributes": {}}]}
Use lowercase snake_case types such as "person" or "organization".
Return {"entities": []} when the text contains no entities.`

const relationshipExtractionPrompt = `You are an information extraction system.
Given a text and the entities already extracted from it, extract the directed
relationships between those entities. Respond with JSON of the form:
{"relationships": [{"source_entity": "...", "target_entity": "...",
"relationship_type": "...", "description": "...", "confidence": 0.9}]}
source_entity and target_entity must exactly match names from the entity list.
Use lowercase snake_case relationship types such as "works_at".
Return {"relationships": []} when there are none.`

// ExtractEntities asks the model for candidate entities in the content.
// Malformed (but delivered) model output degrades to an empty list; a
// transport failure is returned as an error.
func (a *LLMAdapter) ExtractEntities(ctx context.Context, content string) ([]pipeline.CandidateEntity, error) {
	raw, err := a.complete(ctx, entityExtractionPrompt, content, true)
	if err != nil {
		return nil, apperrors.NewExtractionFailed("entities", err)
	}

	var parsed struct {
		Entities []pipeline.CandidateEntity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		a.logger.Warn("Unparseable entity extraction output, treating as empty",
			zap.Error(err),
		)
		return nil, nil
	}

	// Entries without a name are unusable downstream
	entities := parsed.Entities[:0]
	for _, entity := range parsed.Entities {
		if strings.TrimSpace(entity.Name) != "" {
			entities = append(entities, entity)
		}
	}
	return entities, nil
}

// ExtractRelationships asks the model for relationships among the candidate
// entities. Degrades to an empty list on malformed output.
func (a *LLMAdapter) ExtractRelationships(ctx context.Context, content string, entities []pipeline.CandidateEntity) ([]pipeline.CandidateRelationship, error) {
	names := make([]string, 0, len(entities))
	for _, entity := range entities {
		names = append(names, entity.Name)
	}
	input := fmt.Sprintf("Entities: %s\n\nText:\n%s", strings.Join(names, ", "), content)

	raw, err := a.complete(ctx, relationshipExtractionPrompt, input, true)
	if err != nil {
		return nil, apperrors.NewExtractionFailed("relationships", err)
	}

	var parsed struct {
		Relationships []pipeline.CandidateRelationship `json:"relationships"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		a.logger.Warn("Unparseable relationship extraction output, treating as empty",
			zap.Error(err),
		)
		return nil, nil
	}
	return parsed.Relationships, nil
}

// GenerateSummary produces a synopsis of the content within maxChars
func (a *LLMAdapter) GenerateSummary(ctx context.Context, content string, maxChars int) (string, error) {
	prompt := fmt.Sprintf("Summarize the following text in at most %d characters. Respond with the summary only.", maxChars)
	summary, err := a.complete(ctx, prompt, content, false)
	if err != nil {
		return "", apperrors.NewExtractionFailed("summary", err)
	}
	return strings.TrimSpace(summary), nil
}

// GenerateText sends a bare prompt and returns the model's reply
func (a *LLMAdapter) GenerateText(ctx context.Context, prompt string) (string, error) {
	reply, err := a.complete(ctx, "", prompt, false)
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// complete runs a chat completion with retry and exponential backoff
func (a *LLMAdapter) complete(ctx context.Context, systemPrompt, userMsg string, jsonOutput bool) (string, error) {
	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMsg,
	})

	req := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: 0.0,
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", a.model),
		)
	}
	if err != nil {
		return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}
	return resp.Choices[0].Message.Content, nil
}

// stripCodeFence removes a surrounding markdown code fence that some models
// wrap around JSON output despite instructions
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
