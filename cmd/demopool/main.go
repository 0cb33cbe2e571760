package main

import (
	"context"
	"flag"
	"os"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hanfei1991/replenish"
)

func main() {
	cfg := NewConfig()
	err := cfg.Parse(os.Args[1:])
	switch errors.Cause(err) {
	case nil:
	case flag.ErrHelp:
		os.Exit(0)
	default:
		log.L().Fatal("parse cmd flags", zap.Error(err))
	}

	logger, props, err := log.InitLogger(&log.Config{Level: cfg.LogLevel})
	if err != nil {
		log.L().Fatal("initialize logger", zap.Error(err))
	}
	log.ReplaceGlobals(logger, props)

	if err := run(cfg); err != nil {
		log.L().Fatal("demo failed", zap.Error(err))
	}
}

// run drives a group of pools with rate-paced concurrent consumers for
// the configured duration and reports what happened.
func run(cfg *Config) error {
	var replenishEvents atomic.Int64
	group, err := replenish.NewGroup(func() {
		replenishEvents.Inc()
		log.L().Info("group replenished")
	})
	if err != nil {
		return err
	}
	defer group.Destroy()

	for _, spec := range cfg.Pools {
		if err := group.AddFromSpec(spec, cfg.validationMode()); err != nil {
			return err
		}
		log.L().Info("added pool",
			zap.Float64("size", float64(spec.Size)),
			zap.Float64("interval-ms", float64(spec.IntervalMs)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunFor)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	var consumed, rejected atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		worker := i
		eg.Go(func() error {
			for {
				if err := limiter.Wait(ctx); err != nil {
					// The run deadline expiring lands here.
					return nil
				}
				ok, err := group.Consume()
				if err != nil {
					return err
				}
				if ok {
					consumed.Inc()
				} else {
					rejected.Inc()
					log.L().Debug("group exhausted", zap.Int("worker", worker))
				}
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	remaining, err := group.Remaining()
	if err != nil {
		return err
	}
	log.L().Info("demo finished",
		zap.Int64("consumed", consumed.Load()),
		zap.Int64("rejected", rejected.Load()),
		zap.Int64("replenish-events", replenishEvents.Load()),
		zap.Int("remaining", remaining))
	return nil
}
