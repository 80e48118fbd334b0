package generator

import (
	"fmt"
	"strings"
)

// DefaultMaxSentences is the length ceiling given to the writer and enforced by the editor.
const DefaultMaxSentences = 10

// Brief describes the intended post before generation/revision.
type Brief struct {
	Topic        string
	MaxSentences int
}

func (b Brief) maxSentences() int {
	if b.MaxSentences > 0 {
		return b.MaxSentences
	}
	return DefaultMaxSentences
}

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message 用于少量历史（可选）。
type Message struct {
	Role    string
	Content string
}

// Text flattens the prompt into the text the model receives, for usage estimation and logs.
func (p Prompt) Text() string {
	var sb strings.Builder
	sb.WriteString(p.System)
	for _, m := range p.History {
		sb.WriteString(m.Content)
	}
	sb.WriteString(p.User)
	return sb.String()
}

// BuildInitialPrompt 生成首稿提示词。
func BuildInitialPrompt(brief Brief) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("You are a professional blog writer. Write a well-structured, engaging blog post about %q.\n", brief.Topic))
	sb.WriteString("The post should have a clear introduction, body paragraphs, and conclusion.\n")
	sb.WriteString("Include relevant examples and maintain a conversational yet professional tone.\n\n")
	sb.WriteString("IMPORTANT FORMATTING REQUIREMENTS:\n")
	writeFormatRules(&sb, brief, 1)

	return Prompt{User: sb.String()}
}

// BuildEvaluationPrompt asks the editor for a verdict on the current draft.
func BuildEvaluationPrompt(brief Brief, draft Draft) Prompt {
	n := brief.maxSentences()
	var sb strings.Builder
	sb.WriteString("You are a critical blog editor with extremely high standards. Evaluate the following blog draft and respond with either:\n")
	sb.WriteString(fmt.Sprintf("%s - if the draft is exceptional, well-written, engaging, and complete\n", MarkerApprove))
	sb.WriteString(fmt.Sprintf("%s - followed by specific, actionable feedback on what to improve\n\n", MarkerReject))
	sb.WriteString("Focus on:\n")
	sb.WriteString("- Clarity and flow of ideas\n")
	sb.WriteString("- Engagement and reader interest\n")
	sb.WriteString("- Professional yet conversational tone\n")
	sb.WriteString("- Structure and organization\n")
	sb.WriteString(fmt.Sprintf("- Strict adherence to the %d-sentence maximum length requirement\n\n", n))
	sb.WriteString("IMPORTANT EVALUATION RULES:\n")
	sb.WriteString(fmt.Sprintf("1. The blog MUST have no more than %d sentences total. Count the sentences carefully.\n", n))
	sb.WriteString("2. Be extremely thorough in your evaluation and provide detailed feedback.\n")
	sb.WriteString(fmt.Sprintf("3. If the draft exceeds %d sentences, it must receive a %s rating.\n\n", n, MarkerReject))
	sb.WriteString("Draft:\n")
	sb.WriteString(draft.Text)
	sb.WriteString("\n")

	return Prompt{User: sb.String()}
}

// BuildRevisionPrompt 生成修订提示词。
func BuildRevisionPrompt(brief Brief, prev Draft, feedback string, history []Turn) Prompt {
	var sb strings.Builder
	sb.WriteString("You are a blog writer. Improve the following blog draft based on this editorial feedback:\n\n")
	sb.WriteString(fmt.Sprintf("Feedback: %s\n\n", feedback))
	sb.WriteString("Current Draft:\n")
	sb.WriteString(prev.Text)
	sb.WriteString("\n\nIMPORTANT REQUIREMENTS:\n")
	i := writeFormatRules(&sb, brief, 1)
	sb.WriteString(fmt.Sprintf("%d. Maintain a clear introduction, body, and conclusion structure.\n", i))
	sb.WriteString(fmt.Sprintf("%d. Provide the complete improved version while addressing the feedback.\n", i+1))
	sb.WriteString(fmt.Sprintf("%d. Count your sentences carefully before submitting.\n", i+2))

	// 之前几轮的评审意见作为背景，避免来回改。
	var msgs []Message
	for _, t := range history {
		if t.Feedback == "" {
			continue
		}
		msgs = append(msgs, Message{Role: "user", Content: "Earlier feedback: " + t.Feedback})
	}

	return Prompt{
		User:    sb.String(),
		History: msgs,
	}
}

func writeFormatRules(sb *strings.Builder, brief Brief, start int) int {
	rules := []string{
		"Format as plain text only (no Markdown, HTML, or special formatting)",
		"Use simple ASCII characters only",
		`For the title, simply put it on the first line and use ALL CAPS instead of "#" symbols`,
		"Separate paragraphs with blank lines",
		fmt.Sprintf("The blog post must be concise and contain NO MORE THAN %d SENTENCES total.", brief.maxSentences()),
	}
	for i, r := range rules {
		sb.WriteString(fmt.Sprintf("%d. %s\n", start+i, r))
	}
	return start + len(rules)
}
