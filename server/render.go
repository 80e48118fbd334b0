package server

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown renders post bodies for format=html. Raw HTML from the model is escaped.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Typographer),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

func renderHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
