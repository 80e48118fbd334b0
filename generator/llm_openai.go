package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

const defaultAzureAPIVersion = "2024-06-01"

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// It also serves OpenAI-compatible gateways (DeepSeek) and Azure OpenAI deployments.
type OpenAILLM struct {
	Model  string
	Opts   []option.RequestOption
	label  string
	client openai.Client
}

func NewOpenAILLMFromConfig(cfg *LLMSettings, extra ...option.RequestOption) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)
	return newOpenAILLM(cfg, opts), nil
}

// NewAzureOpenAILLM targets an Azure OpenAI resource. When cfg.APIKey is empty the
// credential is used for Entra ID token authentication instead.
func NewAzureOpenAILLM(cfg *LLMSettings, cred azcore.TokenCredential, extra ...option.RequestOption) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("azure openai requires llm.base_url (resource endpoint)")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model (deployment name) is required")
	}
	version := cfg.APIVersion
	if version == "" {
		version = defaultAzureAPIVersion
	}
	opts := []option.RequestOption{azure.WithEndpoint(cfg.BaseURL, version)}
	switch {
	case cfg.APIKey != "":
		opts = append(opts, azure.WithAPIKey(cfg.APIKey))
	case cred != nil:
		opts = append(opts, azure.WithTokenCredential(cred))
	default:
		return nil, errors.New("azure openai requires llm.api_key or a token credential")
	}
	opts = append(opts, extra...)
	if cfg.Label == "" {
		cfg.Label = "Azure OpenAI"
	}
	return newOpenAILLM(cfg, opts), nil
}

func newOpenAILLM(cfg *LLMSettings, opts []option.RequestOption) *OpenAILLM {
	label := cfg.Label
	if label == "" {
		label = fmt.Sprintf("%s/%s", cfg.Provider, cfg.Model)
	}
	return &OpenAILLM{
		Model:  cfg.Model,
		Opts:   opts,
		label:  label,
		client: openai.NewClient(opts...),
	}
}

func (o *OpenAILLM) Label() string { return o.label }

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		msgs = append(msgs, openai.SystemMessage(prompt.System))
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}
