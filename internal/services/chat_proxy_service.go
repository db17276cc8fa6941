package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/sashabaranov/go-openai"
)

// MaxChatMessages bounds the history a client may send in one request
const MaxChatMessages = 50

// ChatStreamer opens a streaming completion upstream
type ChatStreamer interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

// NewOpenAIClient builds the upstream client for an OpenAI compatible API
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// ChatProxyService relays assistant conversations to the upstream model
type ChatProxyService struct {
	client       ChatStreamer
	model        string
	systemPrompt string
	maxTokens    int
	logger       *slog.Logger
}

// NewChatProxyService creates a new ChatProxyService
func NewChatProxyService(client ChatStreamer, model, systemPrompt string, maxTokens int, logger *slog.Logger) *ChatProxyService {
	return &ChatProxyService{
		client:       client,
		model:        model,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		logger:       logger,
	}
}

// Stream sends messages upstream and calls emit for every non-empty delta.
// Errors wrap models.ErrUpstream. emit is never called when opening the stream fails.
func (s *ChatProxyService) Stream(ctx context.Context, messages []models.ChatMessage, emit func(delta string) error) error {
	if len(messages) == 0 || len(messages) > MaxChatMessages {
		return fmt.Errorf("%w: between 1 and %d messages required", models.ErrValidation, MaxChatMessages)
	}

	req := openai.ChatCompletionRequest{
		Model:     s.model,
		Messages:  s.buildMessages(messages),
		MaxTokens: s.maxTokens,
		Stream:    true,
	}

	stream, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		s.logger.Error("failed to open chat stream",
			slog.String("model", s.model),
			slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.logger.Warn("chat stream interrupted", slog.Any("error", err))
			return fmt.Errorf("%w: %v", models.ErrUpstream, err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		delta := response.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := emit(delta); err != nil {
			return err
		}
	}
}

func (s *ChatProxyService) buildMessages(messages []models.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if s.systemPrompt != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: s.systemPrompt,
		})
	}
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return out
}
