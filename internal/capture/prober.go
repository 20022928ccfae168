package capture

import (
	"context"
	"log/slog"
	"time"
)

// Prober takes read-only snapshots of device capabilities.
type Prober struct {
	platform Platform
	secure   func() bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewProber creates a prober. secure reports whether the hosting surface is
// a trusted origin; nil means untrusted.
func NewProber(platform Platform, secure func() bool, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		platform: platform,
		secure:   secure,
		logger:   logger,
		now:      time.Now,
	}
}

// Probe never fails; anything it cannot resolve is reported as not capable.
func (p *Prober) Probe(ctx context.Context) DeviceCapabilities {
	caps := DeviceCapabilities{
		HasPermission: PermissionUnknown,
		ProbedAt:      p.now(),
	}
	if p.secure != nil {
		caps.IsSecureContext = p.secure()
	}
	if p.platform == nil || !p.platform.CaptureSupported() {
		p.logger.Debug("Capture API not available")
		return caps
	}
	caps.HasCaptureAPI = true

	devices, err := p.platform.Devices(ctx)
	if err != nil {
		p.logger.Warn("Device enumeration failed", "error", err)
	} else {
		caps.Devices = append([]DeviceInfo(nil), devices...)
		caps.HasCaptureDevice = len(devices) > 0
	}

	if perm := p.platform.Permission(ctx); perm != "" {
		caps.HasPermission = perm
	}

	p.logger.Debug("Probed capabilities",
		"secure", caps.IsSecureContext,
		"devices", len(caps.Devices),
		"permission", caps.HasPermission)
	return caps
}

// Viability returns the kind that blocks acquisition, or KindNone.
func (c DeviceCapabilities) Viability() ErrorKind {
	switch {
	case !c.IsSecureContext:
		return KindInsecureContext
	case !c.HasCaptureAPI:
		return KindAPIUnsupported
	case !c.HasCaptureDevice:
		return KindNoDeviceFound
	case c.HasPermission == PermissionDenied:
		return KindPermissionDenied
	default:
		return KindNone
	}
}
