// Command wsecho accepts a single WebSocket client and answers every message
// it sends until the client goes away.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/pwsocket/websocket"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log := slog.Make(sloghuman.Sink(os.Stderr))

	err := run(ctx, log, os.Args[1:])
	if err != nil {
		log.Fatal(ctx, "wsecho failed", slog.Error(err))
	}
}

// run parses args, waits for one client and serves it.
func run(ctx context.Context, log slog.Logger, args []string) error {
	fs := pflag.NewFlagSet("wsecho", pflag.ContinueOnError)
	host := fs.String("host", "127.0.0.1", "address to listen on")
	port := fs.Int("port", 8080, "port to listen on")
	bufSize := fs.Int("buffer-size", 4096, "size of the read each frame must fit in")
	readTimeout := fs.Duration("read-timeout", 0, "give up on a silent client after this long, 0 waits forever")
	acceptTimeout := fs.Duration("accept-timeout", 0, "give up waiting for a client after this long, 0 waits forever")
	lenient := fs.Bool("lenient", false, "match upgrade headers case-insensitively")
	limit := fs.Duration("rate", time.Millisecond*100, "minimum interval between answered messages")
	verbose := fs.BoolP("verbose", "v", false, "log debug messages")
	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *verbose {
		log = log.Leveled(slog.LevelDebug)
	}

	s := websocket.NewSession(websocket.Config{
		Host:           *host,
		Port:           *port,
		BufferSize:     *bufSize,
		ReadTimeout:    *readTimeout,
		AcceptTimeout:  *acceptTimeout,
		LenientHeaders: *lenient,
		OnReceive:      reply(log),
		Logger:         log,
	})

	err = s.Accept(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}

	// Unblocks a pending receive on interrupt.
	stop := context.AfterFunc(ctx, func() {
		s.Close()
	})
	defer stop()

	return echo(ctx, log, s, rate.NewLimiter(rate.Every(*limit), 10))
}

// reply answers every message from the receive callback.
func reply(log slog.Logger) func(s *websocket.Session, msg string) {
	return func(s *websocket.Session, msg string) {
		err := s.Send("Server received: " + msg + ", and Hello client!")
		if err != nil {
			log.Warn(context.Background(), "failed to reply", slog.Error(err))
		}
	}
}

// echo receives messages from s until it is closed, greeting the client
// after each one. At most one message every l.Limit is handled, with a
// burst of l.Burst.
func echo(ctx context.Context, log slog.Logger, s *websocket.Session, l *rate.Limiter) error {
	defer s.Close()

	for {
		err := l.Wait(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		m, err := s.ReceiveMessage()
		if errors.Is(err, websocket.ErrConnectionClosed) {
			log.Info(ctx, "connection has been closed")
			return nil
		}
		if err != nil {
			return err
		}
		if m.Type == websocket.MessageClose {
			continue
		}

		log.Info(ctx, "received", slog.F("msg", m.Text))

		err = s.Send("Hello client!")
		if err != nil && !errors.Is(err, websocket.ErrConnectionClosed) {
			return err
		}
	}
}
