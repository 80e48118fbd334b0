package generator

import (
	"context"
	"errors"
	"log/slog"
)

// Exchange is one prompt/response pair sent to the model.
type Exchange struct {
	Prompt   string
	Response string
}

// Agent 负责根据 Brief 和历史/反馈生成、评审或修订稿件。
// It holds no per-run state and may be shared by concurrent runs.
type Agent struct {
	llm    LLMClient
	logger *slog.Logger
}

func NewAgent(llm LLMClient, logger *slog.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{llm: llm, logger: logger}, nil
}

// Label names the backend behind the agent, if the client reports one.
func (a *Agent) Label() string { return labelOf(a.llm) }

// Generate 根据是否存在 prevDraft 决定首稿或修订流程。
func (a *Agent) Generate(ctx context.Context, brief Brief, prevDraft *Draft, history []Turn, feedback string) (Draft, Exchange, error) {
	var prompt Prompt
	if prevDraft == nil {
		prompt = BuildInitialPrompt(brief)
	} else {
		prompt = BuildRevisionPrompt(brief, *prevDraft, feedback, history)
	}

	ex, err := a.complete(ctx, prompt)
	if err != nil {
		return Draft{}, ex, err
	}
	draft, err := PostProcess(ex.Response)
	return draft, ex, err
}

// Evaluate asks the editor for a verdict on draft.
func (a *Agent) Evaluate(ctx context.Context, brief Brief, draft Draft) (Verdict, Exchange, error) {
	ex, err := a.complete(ctx, BuildEvaluationPrompt(brief, draft))
	if err != nil {
		return Verdict{}, ex, err
	}
	return ParseVerdict(ex.Response), ex, nil
}

func (a *Agent) complete(ctx context.Context, prompt Prompt) (Exchange, error) {
	ex := Exchange{Prompt: prompt.Text()}
	a.logger.Debug("llm request", "prompt", ex.Prompt)
	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return ex, err
	}
	ex.Response = raw
	a.logger.Debug("llm response", "response", raw)
	return ex, nil
}
