package generator

import "context"

// LLMClient 抽象大模型客户端，便于替换/Mock。
// The same client serves both the writer and the editor role; implementations must be
// safe for concurrent use.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// Labeler is implemented by clients that can name the backend they talk to.
type Labeler interface {
	Label() string
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	APIVersion string
	Label      string
}

func labelOf(llm LLMClient) string {
	if l, ok := llm.(Labeler); ok {
		return l.Label()
	}
	return ""
}
