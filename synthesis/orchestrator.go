// Package synthesis owns the two-tier text-to-speech fallback policy.
// The primary provider is optimized for low latency with looser
// availability guarantees; the secondary is higher quality but metered.
// Trying primary first preserves common-case latency while the fallback
// bounds worst-case unavailability.
package synthesis

import (
	"context"

	"personakit/core"
)

// State enumerates the orchestrator's per-call states. Each Synthesize
// call walks Idle → TryingPrimary → (TryingSecondary) → Succeeded or
// Failed; no state survives between calls.
type State int

const (
	StateIdle State = iota
	StateTryingPrimary
	StateTryingSecondary
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTryingPrimary:
		return "trying_primary"
	case StateTryingSecondary:
		return "trying_secondary"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Result reports one orchestrator call: the terminal state, the audio on
// success, and the per-provider attempt record for diagnostics.
type Result struct {
	State    State
	Audio    core.AudioPayload
	Attempts []core.SynthesisAttempt
}

// Orchestrator sequences synthesis attempts across a primary and an
// optional secondary provider. Provider configuration is read-only at
// request time; calls are independent and safe for concurrent use.
type Orchestrator struct {
	primary   core.Synthesizer
	secondary core.Synthesizer
	logger    *core.Logger
}

// NewOrchestrator builds an orchestrator. secondary may be nil: its
// absence disables fallback without error.
func NewOrchestrator(primary, secondary core.Synthesizer, logger *core.Logger) *Orchestrator {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Orchestrator{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With(map[string]any{"component": "synthesis"}),
	}
}

// HasProviders reports whether at least one provider is configured.
func (o *Orchestrator) HasProviders() bool {
	return o.primary != nil || o.secondary != nil
}

// Synthesize attempts the primary provider and, only on its failure,
// the secondary. On success the result state is Succeeded and the
// secondary is never attempted after a primary success. With both tiers
// exhausted (or none configured) the result is Failed and the returned
// error carries every attempt's reason; empty audio is never returned
// as success.
func (o *Orchestrator) Synthesize(ctx context.Context, text string) (Result, *core.ProviderError) {
	res := Result{State: StateIdle}

	if o.primary != nil {
		res.State = StateTryingPrimary
		audio, perr := o.attempt(ctx, o.primary, text, &res)
		if perr == nil {
			res.State = StateSucceeded
			res.Audio = audio
			return res, nil
		}
	}

	if o.secondary != nil {
		res.State = StateTryingSecondary
		audio, perr := o.attempt(ctx, o.secondary, text, &res)
		if perr == nil {
			res.State = StateSucceeded
			res.Audio = audio
			return res, nil
		}
	}

	res.State = StateFailed
	return res, o.failure(res.Attempts)
}

// attempt calls one provider and records the outcome, normalizing an
// empty body into a failure.
func (o *Orchestrator) attempt(ctx context.Context, provider core.Synthesizer, text string, res *Result) (core.AudioPayload, *core.ProviderError) {
	audio, perr := provider.Synthesize(ctx, text)
	if perr == nil && audio.Empty() {
		perr = core.NewProviderError(core.ErrKindUpstream, "empty audio body")
	}
	res.Attempts = append(res.Attempts, core.SynthesisAttempt{Provider: provider.Name(), Err: perr})
	if perr != nil {
		o.logger.With(map[string]any{
			"provider": provider.Name(),
			"state":    res.State.String(),
			"error":    perr.Error(),
		}).Warn("synthesis attempt failed")
		return core.AudioPayload{}, perr
	}
	return audio, nil
}

// failure folds the attempt record into one typed error.
func (o *Orchestrator) failure(attempts []core.SynthesisAttempt) *core.ProviderError {
	if len(attempts) == 0 {
		return core.NewProviderError(core.ErrKindAllProvidersFailed, "no synthesis provider configured")
	}
	detail := ""
	for i, a := range attempts {
		if i > 0 {
			detail += "; "
		}
		detail += a.Provider + ": " + a.Err.Error()
	}
	return core.NewProviderError(core.ErrKindAllProvidersFailed, "%s", detail)
}
