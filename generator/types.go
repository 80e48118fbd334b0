package generator

import "time"

// Draft 是模型产出的博客稿件（纯文本）。
type Draft struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Turn 记录一次评审驱动的修订。
type Turn struct {
	Iteration int       `json:"iteration"`
	Feedback  string    `json:"feedback"`
	Draft     Draft     `json:"draft"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Usage accumulates estimated token counts across every model call of one run.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add keeps TotalTokens equal to PromptTokens + CompletionTokens.
func (u *Usage) Add(prompt, completion int) {
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
}

// GenerationResult is the outcome of one Refine call.
type GenerationResult struct {
	ID             string
	Topic          string
	Content        string
	Iterations     int
	Approved       bool
	Usage          Usage
	EditorFeedback []string
	Model          string
}
