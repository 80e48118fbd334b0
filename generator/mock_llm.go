package generator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var mockTopicRe = regexp.MustCompile(`blog post about ("(?:[^"\\]|\\.)*")`)

// MockLLM 一个简单的占位实现，便于本地调试，不调用外部模型。
// Writer prompts get a canned post, editor prompts reject unrevised drafts and approve
// revised ones, and any other prompt is echoed back.
type MockLLM struct{}

func (m MockLLM) Label() string { return "mock" }

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	user := prompt.User
	switch {
	case strings.HasPrefix(user, "You are a critical blog editor"):
		if strings.Contains(user, "[revised]") {
			return MarkerApprove, nil
		}
		return MarkerReject + " Add one concrete example and tighten the conclusion.", nil
	case strings.HasPrefix(user, "You are a professional blog writer"):
		topic := "this topic"
		if m := mockTopicRe.FindStringSubmatch(user); len(m) == 2 {
			if t, err := strconv.Unquote(m[1]); err == nil {
				topic = t
			}
		}
		var sb strings.Builder
		sb.WriteString(strings.ToUpper(topic))
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("%s is worth a closer look. ", topic))
		sb.WriteString("This short post walks through why it matters.\n\n")
		sb.WriteString("Thanks for reading.")
		return sb.String(), nil
	case strings.HasPrefix(user, "You are a blog writer. Improve"):
		draft := between(user, "Current Draft:\n", "\n\nIMPORTANT REQUIREMENTS:")
		return strings.TrimSpace(draft) + "\n\nFor example, try it on a small project first. [revised]", nil
	default:
		return "Mock answer:\n" + user, nil
	}
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i == -1 {
		return s
	}
	s = s[i+len(start):]
	if j := strings.Index(s, end); j != -1 {
		s = s[:j]
	}
	return s
}
