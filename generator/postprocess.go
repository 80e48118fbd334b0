package generator

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyDraft is returned when the writer produced no text.
var ErrEmptyDraft = errors.New("model returned empty draft")

var headingRe = regexp.MustCompile(`^#{1,6}\s+`)

// PostProcess 校验并补全 Draft 基础字段。Text keeps the model output byte for byte.
func PostProcess(raw string) (Draft, error) {
	if strings.TrimSpace(raw) == "" {
		return Draft{}, ErrEmptyDraft
	}
	return Draft{
		Title: extractTitle(raw),
		Text:  raw,
	}, nil
}

// 标题取首个非空行；模型偶尔仍会输出 "# 标题"，这里去掉井号。
func extractTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.TrimSpace(headingRe.ReplaceAllString(line, ""))
	}
	return ""
}
