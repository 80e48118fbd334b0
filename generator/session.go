package generator

import (
	"context"
	"log/slog"
	"time"
)

// Session 持有一次主题的多轮生成/评审/修订上下文。
// A Session belongs to a single Refine call and is never shared.
type Session struct {
	ID       string
	Brief    Brief
	Draft    Draft
	History  []Turn
	Feedback []string
	Usage    Usage

	agent  *Agent
	est    Estimator
	logger *slog.Logger
}

// NewSession 创建 session，尚未生成稿件。
func NewSession(id string, brief Brief, agent *Agent, est Estimator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ID:     id,
		Brief:  brief,
		agent:  agent,
		est:    est,
		logger: logger,
	}
}

// Propose 生成首稿。
func (s *Session) Propose(ctx context.Context) (Draft, error) {
	draft, ex, err := s.agent.Generate(ctx, s.Brief, nil, s.History, "")
	if err != nil {
		return Draft{}, err
	}
	s.record(ex)
	s.Draft = draft
	s.appendTurn(0, "", draft, "initial draft")
	return draft, nil
}

// Review 让编辑评审当前稿件。
func (s *Session) Review(ctx context.Context) (Verdict, error) {
	verdict, ex, err := s.agent.Evaluate(ctx, s.Brief, s.Draft)
	if err != nil {
		return Verdict{}, err
	}
	s.record(ex)
	return verdict, nil
}

// Revise 基于编辑反馈修订稿件。
func (s *Session) Revise(ctx context.Context, iteration int, feedback string) (Draft, error) {
	s.Feedback = append(s.Feedback, feedback)
	draft, ex, err := s.agent.Generate(ctx, s.Brief, &s.Draft, s.History, feedback)
	if err != nil {
		return Draft{}, err
	}
	s.record(ex)
	s.Draft = draft
	s.appendTurn(iteration, feedback, draft, "revision")
	return draft, nil
}

func (s *Session) record(ex Exchange) {
	recordUsage(s.logger, s.est, &s.Usage, ex.Prompt, ex.Response)
}

func (s *Session) appendTurn(iteration int, feedback string, draft Draft, summary string) {
	s.History = append(s.History, Turn{
		Iteration: iteration,
		Feedback:  feedback,
		Draft:     draft,
		Summary:   summary,
		CreatedAt: time.Now(),
	})
}
