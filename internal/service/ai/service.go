package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vitalink/internal/config"
	"vitalink/internal/models"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// systemPreamble is the fixed policy turn prepended to every health query.
const systemPreamble = "You are a wellness coach. Use user data to suggest behaviors linked to outcomes."

// Service answers free-text health queries against a bounded window of
// recent readings by delegating to the configured chat model.
type Service struct {
	chatModel model.BaseChatModel
}

// NewService builds the chat model for the configured assistant provider.
func NewService(cfg *config.Config) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	provider := strings.TrimSpace(cfg.Assistant.Provider)
	if provider == "" {
		provider = "openai"
	}
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}
	modelType := cfg.Assistant.Model
	if modelType == "" {
		modelType = provCfg.Model
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelType,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(context.Background(), &gemini.Config{
			Client: client,
			Model:  modelType,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(context.Background(), &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelType,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}

	return &Service{chatModel: chatModel}, nil
}

// NewServiceWithModel wires a prebuilt chat model; used by tests.
func NewServiceWithModel(chatModel model.BaseChatModel) *Service {
	return &Service{chatModel: chatModel}
}

// Ask serializes the reading window into a two-turn conversation and returns
// the model's answer verbatim. An empty window is fine: the model is simply
// told there is no data yet. No retry, no caching.
func (s *Service) Ask(ctx context.Context, readings []*models.Reading, query string) (string, error) {
	if s == nil || s.chatModel == nil {
		return "", errors.New("chat model not initialized")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("query cannot be empty")
	}

	turns, err := BuildConversation(readings, query)
	if err != nil {
		return "", err
	}
	resp, err := s.chatModel.Generate(ctx, convertTurns(turns))
	if err != nil {
		return "", fmt.Errorf("generate assistant response: %w", err)
	}
	return resp.Content, nil
}

// BuildConversation assembles exactly one system turn and one user turn.
func BuildConversation(readings []*models.Reading, query string) ([]models.Turn, error) {
	if readings == nil {
		readings = []*models.Reading{}
	}
	data, err := json.Marshal(readings)
	if err != nil {
		return nil, fmt.Errorf("serialize readings: %w", err)
	}
	return []models.Turn{
		{Role: models.RoleSystem, Content: systemPreamble},
		{Role: models.RoleUser, Content: fmt.Sprintf("User data: %s. Query: %s", data, query)},
	}, nil
}

func convertTurns(turns []models.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		var role schema.RoleType
		switch turn.Role {
		case models.RoleUser:
			role = schema.User
		case models.RoleAssistant:
			role = schema.Assistant
		case models.RoleSystem:
			role = schema.System
		default:
			role = schema.User
		}
		messages = append(messages, &schema.Message{
			Role:    role,
			Content: turn.Content,
		})
	}
	return messages
}
