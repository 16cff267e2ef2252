package app

import (
	"context"
	"log/slog"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicReporter forwards non-fatal failures, such as a failed
// compensation, to New Relic error tracking. Without a transaction in the
// context the error is only logged.
type NewRelicReporter struct{}

// Report records err on the request's transaction.
func (NewRelicReporter) Report(ctx context.Context, err error, attrs map[string]any) {
	args := make([]any, 0, 2+2*len(attrs))
	args = append(args, "error", err)
	for k, v := range attrs {
		args = append(args, k, v)
	}
	slog.ErrorContext(ctx, "non-fatal failure reported", args...)

	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return
	}
	txn.NoticeError(newrelic.Error{
		Message:    err.Error(),
		Class:      "kickride.nonfatal",
		Attributes: attrs,
	})
}
