package util

import (
	"context"
	"time"

	"github.com/ordishs/gocore"
)

type statsKey struct{}

// NewStatFromContext starts timing key as a child of the stat carried by ctx, or
// of root when ctx carries none. The returned context carries the new stat so
// that nested calls appear beneath it on the stats pages.
func NewStatFromContext(ctx context.Context, key string, root *gocore.Stat) (time.Time, *gocore.Stat, context.Context) {
	parent, ok := ctx.Value(statsKey{}).(*gocore.Stat)
	if !ok {
		parent = root
	}

	stat := parent.NewStat(key, true)

	return gocore.CurrentTime(), stat, context.WithValue(ctx, statsKey{}, stat)
}

// TimeSince returns the seconds elapsed since start, the unit prometheus histograms expect.
func TimeSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}
