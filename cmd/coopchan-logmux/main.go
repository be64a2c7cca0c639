// Command coopchan-logmux tails several log sources and multiplexes their
// lines onto one ordered output. Each source feeds its own channel from an
// fsnotify-driven tailer; a reusable select merges the channels and retires
// a slot when its source closes. FIFO sources are opened non-blocking so a
// writerless pipe cannot stall startup.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/orizon-lang/coopchan"
)

const lineBacklog = 64

func main() {
	fromStart := flag.Bool("from-start", false, "replay existing file contents before tailing")
	flag.Parse()
	paths := flag.Args()

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	if len(paths) == 0 {
		log.Fatal().Msg("usage: coopchan-logmux [-from-start] <path>...")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	kinds := make([]coopchan.CaseKind, len(paths))
	for i := range kinds {
		kinds[i] = coopchan.KindRecv
	}
	factory := coopchan.NewSelectFactory(kinds...)
	for i, path := range paths {
		ch := coopchan.NewChannel[string](lineBacklog)
		if err := coopchan.BindRecv(factory, i, ch); err != nil {
			log.Fatal().Err(err).Msg("bind source")
		}
		g.Go(func() error { return tail(ctx, path, *fromStart, ch) })
	}

	g.Go(func() error { return mux(ctx, log, factory, paths) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("logmux")
	}
}

// mux drains the merged select until every source has closed.
func mux(ctx context.Context, log zerolog.Logger, factory *coopchan.SelectFactory, names []string) error {
	sel := factory.Select()
	remaining := len(names)
	for remaining > 0 {
		idx, err := sel.Wait(ctx)
		if err != nil {
			return err
		}
		line, done, err := coopchan.RecvAs[string](sel, sel.Cases()[idx])
		if err != nil {
			return err
		}
		if done {
			log.Info().Str("source", names[idx]).Msg("source closed")
			if err := factory.Unbind(idx); err != nil {
				return err
			}
			remaining--
			continue
		}
		log.Info().Str("source", names[idx]).Msg(line)
	}
	return nil
}

// tail streams appended lines of path into out until ctx is cancelled or the
// file disappears, then closes out.
func tail(ctx context.Context, path string, fromStart bool, out *coopchan.Channel[string]) error {
	defer out.Close()

	f, err := openSource(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if !fromStart {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return err
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		return err
	}

	r := bufio.NewReader(f)
	var partial string
	if err := drainLines(ctx, r, out, &partial); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return nil
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
			if err := drainLines(ctx, r, out, &partial); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// drainLines forwards every complete line currently readable; an unfinished
// trailing line is carried in partial until its newline arrives.
func drainLines(ctx context.Context, r *bufio.Reader, out *coopchan.Channel[string], partial *string) error {
	for {
		chunk, err := r.ReadString('\n')
		if err == nil {
			line := *partial + chunk[:len(chunk)-1]
			*partial = ""
			if serr := out.Send(ctx, line); serr != nil {
				return serr
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			*partial += chunk
			return nil
		}
		return err
	}
}

// openSource opens path for reading. FIFOs are opened with O_NONBLOCK first
// so a pipe without a writer yet does not block the open, then switched back
// to blocking reads.
func openSource(path string) (*os.File, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.Mode()&os.ModeNamedPipe == 0 {
		return os.Open(path)
	}
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
