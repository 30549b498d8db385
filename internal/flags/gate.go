package flags

import (
	"context"

	"github.com/sirupsen/logrus"
)

type Reader interface {
	Enabled(ctx context.Context, key string) (bool, error)
}

// PauseGate holds a loop while a flag is set. Read errors fail open so a
// Redis outage does not stall the loop.
type PauseGate struct {
	Flags  Reader
	Key    string
	Logger *logrus.Logger
}

func (g PauseGate) Paused(ctx context.Context) bool {
	if g.Flags == nil {
		return false
	}
	on, err := g.Flags.Enabled(ctx, g.Key)
	if err != nil {
		if g.Logger != nil {
			g.Logger.WithError(err).WithField("flag", g.Key).Warn("flag read failed, continuing")
		}
		return false
	}
	return on
}
