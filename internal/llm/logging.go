package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/skulwise/skulwise/internal/logging"
)

type loggingProvider struct {
	inner  Provider
	logger *slog.Logger
}

// WithLogging logs every request with its purpose, latency, token usage
// and, when the model is priced, estimated cost. Prompts are not logged.
func WithLogging(p Provider, logger *slog.Logger) Provider {
	return &loggingProvider{inner: p, logger: logging.NewComponentLogger(logger, "llm")}
}

func (l *loggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	attrs := []any{
		slog.String("purpose", PurposeFrom(ctx)),
		slog.String("model", l.inner.ModelID()),
		slog.Duration("latency", time.Since(start)),
	}
	if req.Schema != nil {
		attrs = append(attrs, slog.String("schema", req.Schema.Name))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error_kind", ErrorKind(err)), logging.Error(err))
		l.logger.Warn("llm request failed", attrs...)
		return nil, err
	}

	attrs = append(attrs,
		slog.String("served_by", resp.Model),
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
	)
	if c, ok := LookupCost(resp.Model); ok {
		attrs = append(attrs, slog.Float64("cost_usd", c.Cost(resp.Usage)))
	}
	l.logger.Info("llm request", attrs...)
	return resp, nil
}

func (l *loggingProvider) ModelID() string { return l.inner.ModelID() }
