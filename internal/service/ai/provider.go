// Package ai implements the response provider on top of Ark-hosted models
// through eino chains. One chain is compiled per configured model option so
// a session can switch models without reconnecting.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/renhao-x/gatechat/backend/internal/config"
)

// Service satisfies both chat.ResponseProvider and chat.StreamProvider.
type Service struct {
	chains map[string]compose.Runnable[map[string]any, *schema.Message]
	system string
}

// NewService compiles a prompt+model chain for every model option.
func NewService(ctx context.Context, cfg config.AIConfig, modelOptions []string) (*Service, error) {
	chains := make(map[string]compose.Runnable[map[string]any, *schema.Message], len(modelOptions))

	for _, modelID := range modelOptions {
		chatModel, err := cfg.NewChatModel(ctx, modelID)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model %q: %w", modelID, err)
		}

		promptTemplate := prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.UserMessage("{query}"),
		)

		chain := compose.NewChain[map[string]any, *schema.Message]()
		chain.AppendChatTemplate(promptTemplate)
		chain.AppendChatModel(chatModel)

		runnable, err := chain.Compile(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to compile chain for %q: %w", modelID, err)
		}
		chains[modelID] = runnable
	}

	return &Service{chains: chains, system: cfg.SystemPrompt}, nil
}

// Respond runs one prompt through the chain for the requested model.
func (s *Service) Respond(ctx context.Context, modelID, userPrompt string) (string, error) {
	chain, err := s.chain(modelID)
	if err != nil {
		return "", err
	}

	response, err := chain.Invoke(ctx, s.chainInput(userPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	log.Printf("[ai] generated response, model=%s, length=%d", modelID, len(response.Content))
	return response.Content, nil
}

// RespondStream streams chunks through emit and returns the concatenated
// text once the model finishes.
func (s *Service) RespondStream(ctx context.Context, modelID, userPrompt string, emit func(chunk string)) (string, error) {
	chain, err := s.chain(modelID)
	if err != nil {
		return "", err
	}

	stream, err := chain.Stream(ctx, s.chainInput(userPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to stream chat chain: %w", err)
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", fmt.Errorf("stream interrupted: %w", recvErr)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		builder.WriteString(chunk.Content)
		emit(chunk.Content)
	}

	log.Printf("[ai] streamed response, model=%s, length=%d", modelID, builder.Len())
	return builder.String(), nil
}

func (s *Service) chain(modelID string) (compose.Runnable[map[string]any, *schema.Message], error) {
	chain, ok := s.chains[modelID]
	if !ok {
		return nil, fmt.Errorf("model %q is not configured", modelID)
	}
	return chain, nil
}

func (s *Service) chainInput(userPrompt string) map[string]any {
	return map[string]any{
		"system": s.system,
		"query":  userPrompt,
	}
}

// Unavailable is wired in place of Service when Ark credentials are missing.
// Every prompt fails, and the session renders the failure as an error turn.
type Unavailable struct{}

func (Unavailable) Respond(context.Context, string, string) (string, error) {
	return "", errors.New("ai backend is not configured")
}
