package server

import "ai_blog_writer/generator"

// BlogResponse is the JSON body of GET /api/blog.
type BlogResponse struct {
	ID       string       `json:"id,omitempty"`
	Topic    string       `json:"topic"`
	Content  string       `json:"content"`
	HTML     string       `json:"html,omitempty"`
	Metadata BlogMetadata `json:"metadata"`
}

type BlogMetadata struct {
	Iterations      int             `json:"iterations"`
	Approved        bool            `json:"approved"`
	TotalTokensUsed int             `json:"totalTokensUsed"`
	EditorFeedback  []FeedbackEntry `json:"editorFeedback,omitempty"`
	TokenUsage      *TokenUsage     `json:"tokenUsage,omitempty"`
	Model           string          `json:"model,omitempty"`
}

// FeedbackEntry pairs a rejection with the 1-based iteration that produced it.
type FeedbackEntry struct {
	Iteration int    `json:"iteration"`
	Feedback  string `json:"feedback"`
}

type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// NewBlogResponse maps a generation result onto the response contract. Feedback, token
// usage and model are left out when empty.
func NewBlogResponse(topic string, res generator.GenerationResult) BlogResponse {
	meta := BlogMetadata{
		Iterations:      res.Iterations,
		Approved:        res.Approved,
		TotalTokensUsed: res.Usage.TotalTokens,
		Model:           res.Model,
	}
	for i, fb := range res.EditorFeedback {
		meta.EditorFeedback = append(meta.EditorFeedback, FeedbackEntry{Iteration: i + 1, Feedback: fb})
	}
	if res.Usage.PromptTokens > 0 {
		meta.TokenUsage = &TokenUsage{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		}
	}
	return BlogResponse{
		ID:       res.ID,
		Topic:    topic,
		Content:  res.Content,
		Metadata: meta,
	}
}
