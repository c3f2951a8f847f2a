package client

import (
	"context"

	"pkt.systems/pslog"
)

// StatusChecker probes endpoint liveness.
type StatusChecker interface {
	CheckStatus(ctx context.Context) error
}

// Startup logs whether the endpoints are reachable. Failure is reported
// through the return value only and never blocks the caller.
func Startup(ctx context.Context, checker StatusChecker) bool {
	logger := pslog.Ctx(ctx)
	if checker == nil {
		logger.Warn("assemble status check skipped", "reason", "no client")
		return false
	}
	if err := checker.CheckStatus(ctx); err != nil {
		logger.Error("can't connect to assemble endpoints", "err", err)
		return false
	}
	logger.Info("connected to assemble endpoints")
	return true
}
