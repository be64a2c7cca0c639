// Command coopchan-bench drives producer/consumer scenarios over coopchan
// channels and reports throughput. Scenarios come from a YAML file whose
// schema version is validated with a semver constraint, so configs written
// for a future incompatible layout fail loudly instead of half-running.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/coopchan"
)

// schemaConstraint pins the config layouts this binary understands.
const schemaConstraint = "^1"

type config struct {
	Schema    string     `yaml:"schema"`
	Scenarios []scenario `yaml:"scenarios"`
}

type scenario struct {
	Name      string `yaml:"name"`
	Capacity  int    `yaml:"capacity"`
	Producers int    `yaml:"producers"`
	Messages  int    `yaml:"messages"`  // per producer
	Rate      int    `yaml:"rate"`      // per-producer messages/sec, 0 = unlimited
	Unsafe    bool   `yaml:"unsafe"`    // skip the macrotask yield
	UseSelect bool   `yaml:"useSelect"` // consume through a Select instead of Receive
}

var defaultConfig = config{
	Schema: "1.0.0",
	Scenarios: []scenario{
		{Name: "unbuffered", Capacity: 0, Producers: 1, Messages: 50000},
		{Name: "buffered-64", Capacity: 64, Producers: 4, Messages: 50000},
		{Name: "buffered-64-unsafe", Capacity: 64, Producers: 4, Messages: 50000, Unsafe: true},
		{Name: "select-consumer", Capacity: 64, Producers: 2, Messages: 25000, Unsafe: true, UseSelect: true},
	},
}

func loadConfig(path string) (config, error) {
	if path == "" {
		return defaultConfig, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return config{}, err
	}
	var cfg config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	ver, err := semver.NewVersion(cfg.Schema)
	if err != nil {
		return config{}, fmt.Errorf("schema version %q: %w", cfg.Schema, err)
	}
	c, err := semver.NewConstraint(schemaConstraint)
	if err != nil {
		return config{}, err
	}
	if !c.Check(ver) {
		return config{}, fmt.Errorf("schema %s does not satisfy %s", cfg.Schema, schemaConstraint)
	}
	return cfg, nil
}

func run(ctx context.Context, sc scenario) (time.Duration, error) {
	opts := []coopchan.ChannelOption[int]{}
	if sc.Unsafe {
		opts = append(opts, coopchan.WithUnsafe[int]())
	}
	ch := coopchan.NewChannel[int](sc.Capacity, opts...)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < sc.Producers; p++ {
		g.Go(func() error {
			var limiter *rate.Limiter
			if sc.Rate > 0 {
				limiter = rate.NewLimiter(rate.Limit(sc.Rate), 1)
			}
			for i := 0; i < sc.Messages; i++ {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				}
				if err := ch.Send(ctx, i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	go func() {
		g.Wait()
		ch.Close()
	}()

	total := sc.Producers * sc.Messages
	received := 0
	if sc.UseSelect {
		sel := coopchan.NewSelect(coopchan.CaseRecv[int](ch))
		if sc.Unsafe {
			sel.SetUnsafe(true)
		}
		c := sel.Cases()[0]
		for {
			if _, err := sel.Wait(ctx); err != nil {
				return 0, err
			}
			_, done, err := coopchan.RecvAs[int](sel, c)
			if err != nil {
				return 0, err
			}
			if done {
				break
			}
			received++
		}
	} else {
		for {
			_, ok, err := ch.Receive(ctx)
			if err != nil {
				return 0, err
			}
			if !ok {
				break
			}
			received++
		}
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if received != total {
		return 0, fmt.Errorf("received %d of %d", received, total)
	}
	return time.Since(start), nil
}

func main() {
	cfgPath := flag.String("config", "", "YAML scenario file (empty = built-in scenarios)")
	flag.Parse()

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	ctx := context.Background()
	for _, sc := range cfg.Scenarios {
		elapsed, err := run(ctx, sc)
		if err != nil {
			log.Fatal().Err(err).Str("scenario", sc.Name).Msg("run")
		}
		total := sc.Producers * sc.Messages
		log.Info().
			Str("scenario", sc.Name).
			Int("messages", total).
			Dur("elapsed", elapsed).
			Float64("msgs_per_sec", float64(total)/elapsed.Seconds()).
			Msg("done")
	}
}
