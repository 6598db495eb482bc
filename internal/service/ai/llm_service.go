package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/chironlab/chiron/backend/internal/config"
	"github.com/chironlab/chiron/backend/internal/model/chat"
	"github.com/chironlab/chiron/backend/internal/model/guide"
)

// Service is the stateless adapter to the hosted text-generation model. It
// carries no conversation state: the caller supplies the full normalized
// history on every call.
type Service struct {
	chatModel model.ChatModel
	profile   guide.Profile
	cfg       config.ModelConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the prompt chain for the given guide profile. Fails
// when the model credential is missing, before any network call is possible.
func NewService(ctx context.Context, profile guide.Profile, cfg config.ModelConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		profile:   profile,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// StreamingEnabled indicates whether replies are streamed chunk by chunk.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// GenerationTimeout bounds one generation end to end. A hung upstream call
// would otherwise hang the caller indefinitely.
func (s *Service) GenerationTimeout() time.Duration {
	return time.Duration(s.cfg.GenerationTimeout) * time.Second
}

// Generate runs one non-streaming completion over the supplied history.
func (s *Service) Generate(ctx context.Context, history []chat.Message) (*schema.Message, error) {
	response, err := s.chain.Invoke(ctx, s.buildChainInput(history))
	if err != nil {
		return nil, fmt.Errorf("failed to run chat chain: %w", err)
	}
	return response, nil
}

// Stream starts one streaming completion over the supplied history. The
// caller owns the reader and must close it.
func (s *Service) Stream(ctx context.Context, history []chat.Message) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.chain.Stream(ctx, s.buildChainInput(history))
	if err != nil {
		return nil, fmt.Errorf("failed to stream chat chain output: %w", err)
	}
	return stream, nil
}

func (s *Service) buildChainInput(history []chat.Message) map[string]any {
	return map[string]any{
		"system":  s.profile.SystemPrompt,
		"history": toSchemaMessages(history),
	}
}

func toSchemaMessages(history []chat.Message) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	out := make([]*schema.Message, 0, len(history))
	for _, msg := range history {
		switch msg.Role {
		case chat.RoleUser:
			out = append(out, schema.UserMessage(msg.Text))
		case chat.RoleAssistant:
			out = append(out, schema.AssistantMessage(msg.Text, nil))
		}
	}
	return out
}
