package main

import (
	"flag"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/hanfei1991/replenish"
	"github.com/hanfei1991/replenish/pkg/validate"
)

// NewConfig creates a config for the demo consumer.
func NewConfig() *Config {
	cfg := &Config{}
	cfg.flagSet = flag.NewFlagSet("demopool", flag.ContinueOnError)
	fs := cfg.flagSet

	fs.StringVar(&cfg.ConfigFile, "config", "", "path to config file")
	fs.StringVar(&cfg.LogLevel, "L", "info", "log level: debug, info, warn, error, fatal")
	fs.IntVar(&cfg.Workers, "workers", 4, "number of concurrent consumers")
	fs.Float64Var(&cfg.Rate, "rate", 50, "consume attempts per second across all workers")
	fs.DurationVar(&cfg.RunFor, "run-for", 3*time.Second, "how long to run the consumers")
	fs.BoolVar(&cfg.StrictTypes, "strict-types", false, "report non-integer pool arguments as distinct type errors")

	return cfg
}

// Config is the configuration for the demo consumer.
type Config struct {
	flagSet *flag.FlagSet

	ConfigFile string

	LogLevel    string               `toml:"log-level"`
	Workers     int                  `toml:"workers"`
	Rate        float64              `toml:"rate"`
	RunFor      time.Duration        `toml:"-"`
	StrictTypes bool                 `toml:"strict-types"`
	Pools       []replenish.PoolSpec `toml:"pools"`
}

// Parse parses flag definitions from the argument list, loads the
// config file if one was given, and applies defaults. Command line
// flags take precedence over the config file.
func (c *Config) Parse(args []string) error {
	if err := c.flagSet.Parse(args); err != nil {
		return errors.Trace(err)
	}
	if c.ConfigFile != "" {
		if err := c.configFromFile(c.ConfigFile); err != nil {
			return err
		}
		if err := c.flagSet.Parse(args); err != nil {
			return errors.Trace(err)
		}
	}
	return c.Adjust()
}

// Adjust fills in defaults for zero-valued fields.
func (c *Config) Adjust() error {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Rate <= 0 {
		c.Rate = 1
	}
	if c.RunFor <= 0 {
		c.RunFor = 3 * time.Second
	}
	if len(c.Pools) == 0 {
		c.Pools = []replenish.PoolSpec{
			{Size: 5, IntervalMs: 1000},
			{Size: 20, IntervalMs: 250},
		}
	}
	return nil
}

func (c *Config) validationMode() validate.Mode {
	if c.StrictTypes {
		return validate.Distinct
	}
	return validate.Collapsed
}

func (c *Config) configFromFile(path string) error {
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Trace(err)
	}
	if undecoded := metaData.Undecoded(); len(undecoded) > 0 {
		log.L().Warn("config file has undecoded keys", zap.Any("keys", undecoded))
	}
	return nil
}
