package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/abxba0/fluentchat/internal/logging"
	"github.com/abxba0/fluentchat/pkg/types"
)

// ProbePrompt is the message sent to check that a provider answers.
const ProbePrompt = "Hello"

// SelectOptions tunes provider selection.
type SelectOptions struct {
	// MaxRetries is the number of extra probes per provider.
	MaxRetries uint64
	// InitialInterval is the first wait between probes.
	InitialInterval time.Duration
	// MaxElapsedTime bounds the time spent on one provider.
	MaxElapsedTime time.Duration
	// OnAttempt is called once per provider with the probe outcome.
	OnAttempt func(providerID string, err error)
}

// DefaultSelectOptions returns the options used by the CLI.
func DefaultSelectOptions() SelectOptions {
	return SelectOptions{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
	}
}

func (o SelectOptions) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.InitialInterval
	b.MaxElapsedTime = o.MaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, o.MaxRetries), ctx)
}

// Select probes the candidates in order and returns the first provider that
// answers. The returned error wraps every failed attempt.
func Select(ctx context.Context, registry *Registry, candidates []string, opts SelectOptions) (Provider, error) {
	if len(candidates) == 0 {
		return nil, ErrNoProviders
	}

	var errs []error
	for _, id := range candidates {
		p, err := registry.Get(id)
		if err == nil {
			err = probe(ctx, p, opts)
		}
		if opts.OnAttempt != nil {
			opts.OnAttempt(id, err)
		}
		if err == nil {
			logging.Info().Str("provider", p.ID()).Msg("Provider selected")
			return p, nil
		}

		logging.Warn().Err(err).Str("provider", id).Msg("Provider probe failed")
		errs = append(errs, fmt.Errorf("%s: %w", id, err))
		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrNoProviders, errors.Join(errs...))
}

func probe(ctx context.Context, p Provider, opts SelectOptions) error {
	req := &CompletionRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: ProbePrompt}},
	}
	timeout := p.Config().RequestTimeout.Std()

	return backoff.Retry(func() error {
		callCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		_, err := p.Complete(callCtx, req)
		return err
	}, opts.backoff(ctx))
}
