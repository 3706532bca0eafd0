package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain is an explicit ordered list of adapters tried in sequence. The
// first adapter that returns a message id wins; every failure is collected
// so the caller sees what each gateway said.
type Chain []Adapter

// Send tries each adapter in order and returns the first successful
// provider message id. If all adapters fail the aggregated error carries
// every attempt's failure.
func (c Chain) Send(ctx context.Context, to, body string) (string, error) {
	if len(c) == 0 {
		return "", fmt.Errorf("%w: empty provider chain", ErrNotConfigured)
	}

	var errs []error
	for _, adapter := range c {
		id, err := adapter.Send(ctx, to, body)
		if err == nil {
			return id, nil
		}
		slog.WarnContext(ctx, "Provider send failed",
			slog.String("provider", adapter.Name()),
			slog.Any("error", err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", adapter.Name(), err))
	}
	return "", errors.Join(errs...)
}
