// Command coopchan-primes runs the classic concurrent prime sieve over
// coopchan channels: a generator feeds naturals into an unbuffered channel
// and every discovered prime adds one filter stage to the chain.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/coopchan"
)

func generate(ctx context.Context, out *coopchan.Channel[int]) error {
	for i := 2; ; i++ {
		if err := out.Send(ctx, i); err != nil {
			return err
		}
	}
}

func filter(ctx context.Context, in, out *coopchan.Channel[int], prime int) error {
	for {
		v, ok, err := in.Receive(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return out.Close()
		}
		if v%prime != 0 {
			if err := out.Send(ctx, v); err != nil {
				return err
			}
		}
	}
}

func main() {
	n := flag.Int("n", 25, "number of primes to emit")
	flag.Parse()

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	head := coopchan.NewChannel[int](0)
	g.Go(func() error { return generate(ctx, head) })

	ch := head
	for i := 0; i < *n; i++ {
		prime, ok, err := ch.Receive(ctx)
		if err != nil || !ok {
			log.Error().Err(err).Msg("sieve chain broke")
			os.Exit(1)
		}
		log.Info().Int("prime", prime).Msg("found")
		next := coopchan.NewChannel[int](0)
		in := ch
		g.Go(func() error { return filter(ctx, in, next, prime) })
		ch = next
	}

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown")
		os.Exit(1)
	}
}
