package reconcile

import (
	"fmt"
	"net"
	"strconv"
	"time"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/rs/zerolog"
)

// Guard runs the pre-authentication checks on an inbound webhook: caller
// origin and timestamp freshness. In strict mode failures reject the request;
// outside strict mode they are tolerated with a warning, never silently.
type Guard struct {
	strict       bool
	allowAll     bool
	allowed      []*net.IPNet
	devIPs       map[string]struct{}
	replayWindow time.Duration
	logger       zerolog.Logger
}

// NewGuard parses the allowlist CIDRs up front so a bad config fails at boot,
// not per request.
func NewGuard(strict, allowAll bool, allowedCIDRs, developmentIPs []string, replayWindow time.Duration, logger zerolog.Logger) (*Guard, error) {
	var allowed []*net.IPNet
	for _, cidr := range allowedCIDRs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("parse allowed origin %q: %w", cidr, err)
		}
		allowed = append(allowed, ipNet)
	}

	devIPs := make(map[string]struct{}, len(developmentIPs))
	for _, ip := range developmentIPs {
		devIPs[ip] = struct{}{}
	}

	return &Guard{
		strict:       strict,
		allowAll:     allowAll,
		allowed:      allowed,
		devIPs:       devIPs,
		replayWindow: replayWindow,
		logger:       logger.With().Str("component", "webhook_guard").Logger(),
	}, nil
}

// CheckOrigin verifies the caller IP against the gateway's CIDR allowlist.
func (g *Guard) CheckOrigin(remoteIP string) error {
	ip := net.ParseIP(remoteIP)
	if ip != nil {
		for _, ipNet := range g.allowed {
			if ipNet.Contains(ip) {
				return nil
			}
		}
	}

	if g.strict {
		return domainErrors.ErrOriginRejected
	}

	if _, ok := g.devIPs[remoteIP]; ok {
		return nil
	}
	if g.allowAll {
		g.logger.Warn().
			Str("remote_ip", remoteIP).
			Msg("Accepting webhook from unverified origin (allow_all_origins enabled)")
		return nil
	}
	return domainErrors.ErrOriginRejected
}

// CheckFreshness bounds replay exposure: the supplied unix timestamp must be
// within the replay window of now. Missing or stale timestamps reject in
// strict mode and warn otherwise.
func (g *Guard) CheckFreshness(timestamp string, now time.Time) error {
	if timestamp == "" {
		if g.strict {
			return domainErrors.ErrReplayRejected
		}
		g.logger.Warn().Msg("Webhook carries no timestamp, accepting in lenient mode")
		return nil
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		if g.strict {
			return domainErrors.ErrReplayRejected
		}
		g.logger.Warn().Str("timestamp", timestamp).Msg("Unparseable webhook timestamp, accepting in lenient mode")
		return nil
	}

	delta := now.Sub(time.Unix(unix, 0))
	if delta < 0 {
		delta = -delta
	}
	if delta > g.replayWindow {
		if g.strict {
			return domainErrors.ErrReplayRejected
		}
		g.logger.Warn().
			Dur("delta", delta).
			Msg("Stale webhook timestamp, accepting in lenient mode")
	}
	return nil
}
