package generator

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxIterations bounds the number of evaluate/revise cycles.
const DefaultMaxIterations = 3

// ErrEmptyTopic is returned before any model call when the topic is blank.
var ErrEmptyTopic = errors.New("topic is required")

// Options tunes the writer/editor loop.
type Options struct {
	MaxIterations int
	// ForceFirstCritique treats the first verdict as needs-improvement whatever the
	// editor says, so at least one revision always happens.
	ForceFirstCritique bool
	MaxSentences       int
	// ModelLabel overrides the label reported by the LLM client.
	ModelLabel string
	Estimator  Estimator
}

// DefaultOptions returns the loop settings used by the service.
func DefaultOptions() Options {
	return Options{
		MaxIterations:      DefaultMaxIterations,
		ForceFirstCritique: true,
		MaxSentences:       DefaultMaxSentences,
	}
}

// Refiner drives the writer/editor refinement loop.
type Refiner struct {
	agent  *Agent
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

func NewRefiner(agent *Agent, opts Options, logger *slog.Logger) (*Refiner, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.MaxSentences <= 0 {
		opts.MaxSentences = DefaultMaxSentences
	}
	if opts.ModelLabel == "" {
		opts.ModelLabel = agent.Label()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refiner{
		agent:  agent,
		opts:   opts,
		logger: logger,
		tracer: otel.Tracer("ai_blog_writer/generator"),
	}, nil
}

// Refine writes a post about topic, then alternates editor review and revision until the
// editor approves or MaxIterations cycles have run. Backend errors are returned as-is and
// no partial result is produced. Running out of iterations is not an error.
func (r *Refiner) Refine(ctx context.Context, topic string) (GenerationResult, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return GenerationResult{}, ErrEmptyTopic
	}

	ctx, span := r.tracer.Start(ctx, "blog.refine", trace.WithAttributes(
		attribute.String("blog.topic", topic),
		attribute.Int("blog.max_iterations", r.opts.MaxIterations),
	))
	defer span.End()

	sess := NewSession(uuid.NewString(), Brief{Topic: topic, MaxSentences: r.opts.MaxSentences}, r.agent, r.opts.Estimator, r.logger)
	logger := r.logger.With("run_id", sess.ID)
	logger.Info("starting blog generation", "topic", topic)

	if _, err := sess.Propose(ctx); err != nil {
		return GenerationResult{}, fail(span, err)
	}
	logger.Info("initial draft generated", "topic", topic)

	approved := false
	iteration := 1
	force := r.opts.ForceFirstCritique
	for (!approved && iteration <= r.opts.MaxIterations) || force {
		if err := ctx.Err(); err != nil {
			return GenerationResult{}, fail(span, err)
		}
		forced := force
		force = false

		var err error
		approved, err = r.iterate(ctx, sess, iteration, forced)
		if err != nil {
			return GenerationResult{}, fail(span, err)
		}
		iteration++
	}

	res := GenerationResult{
		ID:             sess.ID,
		Topic:          topic,
		Content:        sess.Draft.Text,
		Iterations:     iteration - 1,
		Approved:       approved,
		Usage:          sess.Usage,
		EditorFeedback: sess.Feedback,
		Model:          r.opts.ModelLabel,
	}
	span.SetAttributes(
		attribute.Int("blog.iterations", res.Iterations),
		attribute.Bool("blog.approved", res.Approved),
		attribute.Int("blog.tokens.total", res.Usage.TotalTokens),
	)
	if !approved {
		logger.Warn("maximum iterations reached without editor approval", "max_iterations", r.opts.MaxIterations)
	} else {
		logger.Info("blog generation completed", "topic", topic, "iterations", res.Iterations)
	}
	return res, nil
}

// iterate runs one review and, unless the draft is approved, one revision.
func (r *Refiner) iterate(ctx context.Context, sess *Session, iteration int, forced bool) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "blog.refine.iteration", trace.WithAttributes(
		attribute.Int("blog.iteration", iteration),
	))
	defer span.End()
	logger := r.logger.With("run_id", sess.ID, "iteration", iteration)

	verdict, err := sess.Review(ctx)
	if err != nil {
		return false, fail(span, err)
	}
	if verdict.Approved() && !forced {
		span.SetAttributes(attribute.String("blog.verdict", verdict.Outcome.String()))
		logger.Info("draft approved by editor")
		return true, nil
	}

	feedback := verdict.Feedback
	if verdict.Approved() {
		// 首轮强制评审：即使编辑给了 PASS 也按反馈处理。
		feedback = ExtractFeedback(verdict.Raw)
	}
	span.SetAttributes(attribute.String("blog.verdict", OutcomeNeedsImprovement.String()))
	logger.Info("editor feedback received", "feedback", feedback, "forced", forced)

	if _, err := sess.Revise(ctx, iteration, feedback); err != nil {
		return false, fail(span, err)
	}
	logger.Info("revised draft received")
	return false, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
