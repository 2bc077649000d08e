package simulator

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/pkg/connector"
)

// Simulator is driven by Loop.
type Simulator interface {
	Reset(config map[string]any) error
	Step(action map[string]any) error
	State() map[string]any
}

// Advancer is the part of *connector.Connector that Loop needs.
type Advancer interface {
	Advance(ctx context.Context, state map[string]any) (connector.Event, error)
}

// LoopOptions bounds a Loop run.
type LoopOptions struct {
	MaxEpisodes int           // stop after this many finished episodes, 0 for no limit
	MaxIdle     time.Duration // cap on a single idle wait, 0 for DefaultMaxIdle
	OnEvent     func(connector.Event)
}

// DefaultMaxIdle caps idle waits when LoopOptions.MaxIdle is zero.
const DefaultMaxIdle = 5 * time.Second

// Stats summarizes a Loop run.
type Stats struct {
	Episodes      int            `json:"episodes" yaml:"episodes"`
	Steps         int            `json:"steps" yaml:"steps"`
	Idles         int            `json:"idles" yaml:"idles"`
	FinishReasons map[string]int `json:"finishReasons" yaml:"finishReasons"`
	Elapsed       time.Duration  `json:"elapsed" yaml:"elapsed"`
}

// Loop advances the session until MaxEpisodes episodes have finished, ctx is
// done or an error occurs. The stats gathered so far are returned in every
// case.
func Loop(ctx context.Context, conn Advancer, sim Simulator, opts LoopOptions) (Stats, error) {
	start := time.Now()
	stats := Stats{FinishReasons: map[string]int{}}
	maxIdle := opts.MaxIdle
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}

	for {
		stats.Elapsed = time.Since(start)
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		event, err := conn.Advance(ctx, sim.State())
		if err != nil {
			return stats, err
		}
		if opts.OnEvent != nil {
			opts.OnEvent(event)
		}

		switch event.Kind {
		case connector.EventIdle:
			stats.Idles++
			wait := min(event.CallbackTime, maxIdle)
			if wait > 0 {
				select {
				case <-ctx.Done():
					stats.Elapsed = time.Since(start)
					return stats, ctx.Err()
				case <-time.After(wait):
				}
			}
		case connector.EventEpisodeStart:
			if err := sim.Reset(event.Config()); err != nil {
				return stats, err
			}
		case connector.EventEpisodeStep:
			if err := sim.Step(event.Action()); err != nil {
				return stats, err
			}
			stats.Steps++
		case connector.EventEpisodeFinish:
			stats.Episodes++
			stats.FinishReasons[event.Reason()]++
			log.Ctx(ctx).Info().Int("episode", stats.Episodes).Str("reason", event.Reason()).Msg("episode finished")
			if opts.MaxEpisodes > 0 && stats.Episodes >= opts.MaxEpisodes {
				stats.Elapsed = time.Since(start)
				return stats, nil
			}
		}
	}
}
