package generator

import (
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// CharsPerToken is the rough characters-per-token ratio used when the backend does not
// report usage.
const CharsPerToken = 4

// Estimator approximates token usage for one model call.
type Estimator func(prompt, response string) (promptTokens, completionTokens int)

// EstimateUsage is the default Estimator: characters / CharsPerToken, rounded down.
func EstimateUsage(prompt, response string) (int, int) {
	return utf8.RuneCountInString(prompt) / CharsPerToken, utf8.RuneCountInString(response) / CharsPerToken
}

// recordUsage adds one call's estimate to u. Estimation is best effort: a failing
// estimator is logged and contributes nothing.
func recordUsage(logger *slog.Logger, est Estimator, u *Usage, prompt, response string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("failed to estimate token usage", "error", fmt.Sprint(r))
		}
	}()
	if est == nil {
		est = EstimateUsage
	}
	p, c := est(prompt, response)
	if p < 0 || c < 0 {
		logger.Warn("failed to estimate token usage", "error", "negative estimate", "prompt", p, "completion", c)
		return
	}
	u.Add(p, c)
	logger.Debug("estimated token usage", "prompt", p, "completion", c, "total", p+c)
}
