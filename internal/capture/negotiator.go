package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// AttemptResult reports the outcome of one ladder rung.
type AttemptResult struct {
	Index    int
	Profile  ConstraintProfile
	Kind     ErrorKind // KindNone on success
	Err      error
	Duration time.Duration
}

// AttemptObserver is notified after every rung.
type AttemptObserver func(AttemptResult)

// Negotiator walks a constraint ladder against a platform.
type Negotiator struct {
	platform Platform
	pause    time.Duration
	observer AttemptObserver
	logger   *slog.Logger
}

// NewNegotiator creates a negotiator pausing between attempts.
func NewNegotiator(platform Platform, pause time.Duration, observer AttemptObserver, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		platform: platform,
		pause:    pause,
		observer: observer,
		logger:   logger,
	}
}

// Acquire returns the first stream the platform accepts, together with the
// profile that produced it. A permission refusal stops the ladder at once;
// every other failure moves on to the next profile. When the ladder is
// exhausted the last observed error is returned.
func (n *Negotiator) Acquire(ctx context.Context, profiles []ConstraintProfile) (Stream, ConstraintProfile, error) {
	if len(profiles) == 0 {
		return nil, ConstraintProfile{}, NewError(KindOverconstrained, "acquire", ErrEmptyLadder)
	}

	limit := rate.Inf
	if n.pause > 0 {
		limit = rate.Every(n.pause)
	}
	pacer := rate.NewLimiter(limit, 1)

	var lastErr error
	for i, profile := range profiles {
		if err := pacer.Wait(ctx); err != nil {
			// The limiter refuses early when the pause would outlast the deadline.
			<-ctx.Done()
			return nil, ConstraintProfile{}, fmt.Errorf("acquire: %w", ctx.Err())
		}

		start := time.Now()
		stream, err := n.attempt(ctx, profile)
		result := AttemptResult{
			Index:    i,
			Profile:  profile,
			Kind:     KindOf(err),
			Err:      err,
			Duration: time.Since(start),
		}
		n.notify(result)

		if err == nil {
			n.logger.Info("Profile accepted", "profile", profile.String(), "index", i)
			return stream, profile, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ConstraintProfile{}, fmt.Errorf("acquire: %w", ctx.Err())
		}
		if result.Kind == KindPermissionDenied {
			n.logger.Warn("Permission denied, abandoning ladder", "profile", profile.String())
			return nil, ConstraintProfile{}, err
		}
		n.logger.Debug("Profile rejected", "profile", profile.String(), "kind", result.Kind, "error", err)
	}

	return nil, ConstraintProfile{}, lastErr
}

// attempt opens one profile and validates the stream before accepting it.
func (n *Negotiator) attempt(ctx context.Context, profile ConstraintProfile) (Stream, error) {
	stream, err := n.platform.Open(ctx, profile)
	if err != nil {
		return nil, classify(err, profile)
	}
	if stream == nil {
		return nil, &Error{Kind: KindVideoPipelineFailure, Op: "acquire", Profile: profile.String(),
			Err: errors.New("platform returned no stream")}
	}
	if usableTracks(stream) == 0 {
		releaseStream(stream)
		return nil, &Error{Kind: KindVideoPipelineFailure, Op: "acquire", Profile: profile.String(),
			Err: errors.New("stream has no live tracks")}
	}
	return stream, nil
}

func (n *Negotiator) notify(r AttemptResult) {
	if n.observer != nil {
		n.observer(r)
	}
}

// classify attaches the profile to platform errors, keeping their kind.
func classify(err error, profile ConstraintProfile) error {
	var e *Error
	if errors.As(err, &e) {
		out := *e
		if out.Op == "" {
			out.Op = "acquire"
		}
		if out.Profile == "" {
			out.Profile = profile.String()
		}
		return &out
	}
	return &Error{Kind: KindVideoPipelineFailure, Op: "acquire", Profile: profile.String(), Err: err}
}

// releaseStream stops every track of a stream that was never installed.
func releaseStream(s Stream) {
	for _, t := range s.Tracks() {
		if t != nil {
			t.Stop()
		}
	}
}
