package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/palmcam/internal/events"
)

// DefaultMaxZoom caps the preview zoom factor.
const DefaultMaxZoom = 4.0

// Publisher receives lifecycle events. *events.Bus satisfies it.
type Publisher interface {
	Publish(ev events.Event)
}

// Options configures a Controller.
type Options struct {
	Platform     Platform
	Secure       func() bool
	Ladder       []ConstraintProfile // nil uses DefaultLadder
	Timeouts     TimeoutPolicy
	AttemptPause time.Duration
	CropFraction float64
	JPEGQuality  int
	MaxZoom      float64
	Events       Publisher
	Logger       *slog.Logger
}

// session is the mutable root. Only the controller touches it, under mu.
type session struct {
	id         string
	state      State
	handle     *streamHandle // non-nil iff state == StateActive
	geometry   Resolution
	retryCount int
	lastErr    error
	zoom       float64
}

// attempt is the cancellation token of one acquisition.
type attempt struct {
	ctx       context.Context
	cancel    context.CancelFunc
	sessionID string
	obtained  atomic.Bool // a stream came back from the ladder
}

// outcome is what the acquisition pipeline hands back to the race.
type outcome struct {
	handle   *streamHandle
	geometry Resolution
	err      error
}

func (o outcome) release() { o.handle.release() }

// Controller owns the capture session state machine.
type Controller struct {
	platform Platform
	prober   *Prober
	cropper  *Cropper
	policy   TimeoutPolicy
	pause    time.Duration
	maxZoom  float64
	events   Publisher
	logger   *slog.Logger
	claim    *claim
	handles  HandleCounter

	mu      sync.Mutex
	ladder  []ConstraintProfile
	caps    DeviceCapabilities
	sess    session
	current *attempt
	closed  bool
}

// NewController creates a controller in the Inactive state.
func NewController(opts Options) (*Controller, error) {
	if opts.Platform == nil {
		return nil, errors.New("capture: platform is required")
	}
	ladder := opts.Ladder
	if ladder == nil {
		ladder = DefaultLadder()
	}
	if err := ValidateLadder(ladder); err != nil {
		return nil, fmt.Errorf("capture: invalid ladder: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Timeouts
	if policy.Base <= 0 {
		policy = DefaultTimeoutPolicy()
	}
	maxZoom := opts.MaxZoom
	if maxZoom < 1 {
		maxZoom = DefaultMaxZoom
	}

	return &Controller{
		platform: opts.Platform,
		prober:   NewProber(opts.Platform, opts.Secure, logger),
		cropper:  NewCropper(opts.CropFraction, opts.JPEGQuality),
		policy:   policy,
		pause:    opts.AttemptPause,
		maxZoom:  maxZoom,
		events:   opts.Events,
		logger:   logger,
		claim:    processClaim,
		ladder:   cloneLadder(ladder),
		sess:     session{state: StateInactive, zoom: 1},
	}, nil
}

// Start begins acquisition and blocks until the attempt resolves or ctx
// ends. It is a no-op while Starting or Active. Hardware failures are not
// returned; they land in State and Diagnostics.
func (c *Controller) Start(ctx context.Context) error {
	return c.begin(ctx, "start", false)
}

// Retry re-enters Starting from Error with a scaled timeout.
func (c *Controller) Retry(ctx context.Context) error {
	return c.begin(ctx, "retry", true)
}

func (c *Controller) begin(ctx context.Context, op string, fromErrorOnly bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch state := c.sess.state; state {
	case StateStarting, StateActive:
		c.mu.Unlock()
		if fromErrorOnly {
			return ErrInvalidTransition
		}
		c.logger.Debug("Start ignored, session busy", "op", op, "state", state)
		return nil
	case StateInactive:
		if fromErrorOnly {
			c.mu.Unlock()
			return ErrInvalidTransition
		}
	}
	if !c.claim.acquire(c) {
		c.mu.Unlock()
		return ErrSessionBusy
	}

	// A stale handle cannot exist outside Active, but never request new
	// hardware while one is held.
	if c.sess.handle != nil {
		c.sess.handle.release()
		c.sess.handle = nil
	}
	if c.sess.id == "" {
		c.sess.id = uuid.NewString()
	}

	timeout := c.policy.Bound(c.sess.retryCount)
	at := c.newAttemptLocked(timeout)
	ladder := cloneLadder(c.ladder)
	ev := c.transitionLocked(StateStarting, "")
	c.mu.Unlock()
	c.publish(ev)

	c.logger.Info("Acquisition started", "op", op, "session_id", at.sessionID, "timeout", timeout)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.run(at, ladder)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newAttemptLocked cancels any previous token and issues a fresh one.
func (c *Controller) newAttemptLocked(timeout time.Duration) *attempt {
	if c.current != nil {
		c.current.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	at := &attempt{ctx: ctx, cancel: cancel, sessionID: c.sess.id}
	c.current = at
	return at
}

// run probes, then races the acquisition pipeline against the attempt's
// deadline. Whichever loses has its result released, never installed.
func (c *Controller) run(at *attempt, ladder []ConstraintProfile) {
	defer at.cancel()

	caps := c.prober.Probe(at.ctx)
	c.mu.Lock()
	if c.current == at {
		c.caps = caps
	}
	c.mu.Unlock()

	if kind := caps.Viability(); kind != KindNone {
		c.finish(at, outcome{err: NewError(kind, "start", nil)})
		return
	}

	results := make(chan outcome, 1)
	go func() {
		results <- c.pipeline(at, ladder)
	}()

	select {
	case out := <-results:
		c.finish(at, out)
	case <-at.ctx.Done():
		c.finish(at, outcome{err: expiryError(at)})
		go func() {
			late := <-results
			if late.handle != nil {
				c.logger.Warn("Releasing stream that resolved after the attempt ended",
					"session_id", at.sessionID, "profile", late.handle.profile.String())
			}
			late.release()
		}()
	}
}

// pipeline negotiates a stream and waits for valid frame geometry.
func (c *Controller) pipeline(at *attempt, ladder []ConstraintProfile) outcome {
	negotiator := NewNegotiator(c.platform, c.pause, c.observeAttempt(at), c.logger)
	stream, profile, err := negotiator.Acquire(at.ctx, ladder)
	if err != nil {
		return outcome{err: err}
	}

	h := c.handles.wrap(stream, profile)
	at.obtained.Store(true)

	geometry, err := stream.WaitGeometry(at.ctx)
	if err == nil && (geometry.Width <= 0 || geometry.Height <= 0) {
		err = fmt.Errorf("invalid frame geometry %s", geometry)
	}
	if err != nil {
		h.release()
		return outcome{err: &Error{Kind: KindVideoPipelineFailure, Op: "start", Profile: profile.String(), Err: err}}
	}
	return outcome{handle: h, geometry: geometry}
}

// expiryError classifies an attempt that ran out of time.
func expiryError(at *attempt) error {
	cause := at.ctx.Err()
	if at.obtained.Load() {
		return NewError(KindVideoPipelineFailure, "start",
			fmt.Errorf("frame geometry not reported before deadline: %w", cause))
	}
	return NewError(KindAcquisitionTimeout, "start", cause)
}

// finish is the single transition out of Starting. It is a no-op for an
// attempt that is no longer current; the result is then only released.
func (c *Controller) finish(at *attempt, out outcome) {
	c.mu.Lock()
	if c.current != at || c.sess.state != StateStarting {
		c.mu.Unlock()
		out.release()
		return
	}
	if at.ctx.Err() != nil {
		// Resolved after the deadline: the timer already won.
		out.release()
		out = outcome{err: expiryError(at)}
	}
	c.current = nil

	var ev events.SessionStateChangedEvent
	if out.err != nil {
		out.release()
		c.sess.retryCount++
		c.sess.lastErr = out.err
		ev = c.transitionLocked(StateError, "")
		c.claim.release(c)
	} else {
		c.sess.handle = out.handle
		c.sess.geometry = out.geometry
		c.sess.retryCount = 0
		c.sess.lastErr = nil
		ev = c.transitionLocked(StateActive, out.handle.profile.String())
	}
	c.mu.Unlock()

	if out.err != nil {
		c.logger.Warn("Acquisition failed", "session_id", at.sessionID,
			"kind", KindOf(out.err), "retry_count", ev.RetryCount, "error", out.err)
	} else {
		c.logger.Info("Session active", "session_id", at.sessionID,
			"profile", ev.Profile, "geometry", out.geometry.String())
	}
	c.publish(ev)
}

// Stop releases all hardware and returns to Inactive. It is idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	ev, changed := c.stopLocked()
	c.mu.Unlock()
	if changed {
		c.logger.Info("Session stopped", "session_id", ev.SessionID, "from", ev.From)
		c.publish(ev)
	}
}

// Close tears the controller down. Later starts fail with ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	ev, changed := c.stopLocked()
	c.closed = true
	c.mu.Unlock()
	if changed {
		c.publish(ev)
	}
	return nil
}

// stopLocked releases the handle before the state change becomes visible.
func (c *Controller) stopLocked() (events.SessionStateChangedEvent, bool) {
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	if c.sess.handle != nil {
		c.sess.handle.release()
		c.sess.handle = nil
	}
	c.claim.release(c)
	if c.sess.state == StateInactive {
		return events.SessionStateChangedEvent{}, false
	}
	ev := c.transitionLocked(StateInactive, "")
	c.sess = session{state: StateInactive, zoom: 1}
	return ev, true
}

// transitionLocked moves the session and describes the move.
func (c *Controller) transitionLocked(to State, profile string) events.SessionStateChangedEvent {
	from := c.sess.state
	c.sess.state = to
	if to != StateActive {
		c.sess.geometry = Resolution{}
	}
	kind := KindNone
	errText := ""
	if to == StateError && c.sess.lastErr != nil {
		kind = KindOf(c.sess.lastErr)
		errText = c.sess.lastErr.Error()
	}
	return events.SessionStateChangedEvent{
		SessionID:  c.sess.id,
		From:       string(from),
		To:         string(to),
		RetryCount: c.sess.retryCount,
		ErrorKind:  string(kind),
		Error:      errText,
		Profile:    profile,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	}
}

// Capture borrows the active stream for one frame. It never changes state.
func (c *Controller) Capture() (*CapturedFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess.state != StateActive || c.sess.handle == nil {
		return nil, NewError(KindNotReady, "capture", fmt.Errorf("session is %s", c.sess.state))
	}
	if c.sess.geometry.Width <= 0 || c.sess.geometry.Height <= 0 {
		return nil, NewError(KindNotReady, "capture", errors.New("frame geometry not valid"))
	}

	img, err := c.sess.handle.stream.Frame()
	if err != nil {
		return nil, NewError(KindNotReady, "capture", err)
	}
	frame, err := c.cropper.Crop(img)
	if err != nil {
		return nil, err
	}

	c.publishAsync(events.FrameCapturedEvent{
		SessionID:  c.sess.id,
		Width:      frame.CropRect.Width,
		Height:     frame.CropRect.Height,
		SourceSize: fmt.Sprintf("%dx%d", frame.SourceWidth, frame.SourceHeight),
		Bytes:      len(frame.EncodedImage),
		Timestamp:  frame.CapturedAt.Format(time.RFC3339Nano),
	})
	return frame, nil
}

// SetZoom sets the preview scale, clamped to [1, MaxZoom]. It does not
// touch the stream's native resolution.
func (c *Controller) SetZoom(level float64) (float64, error) {
	if math.IsNaN(level) || math.IsInf(level, 0) {
		return 0, fmt.Errorf("invalid zoom level %v", level)
	}
	level = math.Min(math.Max(level, 1), c.maxZoom)

	c.mu.Lock()
	c.sess.zoom = level
	c.mu.Unlock()
	return level, nil
}

// Reprobe refreshes the capability snapshot.
func (c *Controller) Reprobe(ctx context.Context) DeviceCapabilities {
	caps := c.prober.Probe(ctx)
	c.mu.Lock()
	c.caps = caps
	c.mu.Unlock()
	return caps
}

// SetLadder replaces the ladder used by the next attempt.
func (c *Controller) SetLadder(profiles []ConstraintProfile) error {
	if err := ValidateLadder(profiles); err != nil {
		return err
	}
	c.mu.Lock()
	c.ladder = cloneLadder(profiles)
	c.mu.Unlock()
	c.logger.Info("Constraint ladder updated", "profiles", len(profiles))
	return nil
}

// Ladder returns a copy of the current ladder.
func (c *Controller) Ladder() []ConstraintProfile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneLadder(c.ladder)
}

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.state
}

// LiveHandles returns the number of stream handles currently held.
func (c *Controller) LiveHandles() int64 {
	return c.handles.Live()
}

// Diagnostics returns a troubleshooting snapshot.
func (c *Controller) Diagnostics() Diagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := Diagnostics{
		SessionID:    c.sess.id,
		State:        c.sess.state,
		RetryCount:   c.sess.retryCount,
		ZoomLevel:    c.sess.zoom,
		NextTimeout:  c.policy.Bound(c.sess.retryCount),
		Capabilities: c.caps,
	}
	if c.sess.lastErr != nil {
		d.LastError = KindOf(c.sess.lastErr)
		d.LastErrorText = d.LastError.Message()
	}
	if c.sess.handle != nil {
		d.ActiveProfile = c.sess.handle.profile.String()
		g := c.sess.geometry
		d.Geometry = &g
	}
	return d
}

// LastError returns the error behind the Error state, if any.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.lastErr
}

func (c *Controller) observeAttempt(at *attempt) AttemptObserver {
	return func(r AttemptResult) {
		outcome := "accepted"
		errText := ""
		if r.Err != nil {
			outcome = string(r.Kind)
			errText = r.Err.Error()
		}
		c.publish(events.AcquisitionAttemptEvent{
			SessionID:  at.sessionID,
			Profile:    r.Profile.String(),
			Index:      r.Index,
			Outcome:    outcome,
			Error:      errText,
			DurationMs: r.Duration.Milliseconds(),
			Timestamp:  time.Now().Format(time.RFC3339Nano),
		})
	}
}

func (c *Controller) publish(ev events.Event) {
	if c.events != nil {
		c.events.Publish(ev)
	}
}

// publishAsync is used while mu is held so subscribers can call back in.
func (c *Controller) publishAsync(ev events.Event) {
	if c.events != nil {
		go c.events.Publish(ev)
	}
}
