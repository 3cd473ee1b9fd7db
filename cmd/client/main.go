package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/iamasit07/4-in-a-row/client/internal/config"
	"github.com/iamasit07/4-in-a-row/client/internal/domain"
	"github.com/iamasit07/4-in-a-row/client/internal/logger"
	"github.com/iamasit07/4-in-a-row/client/internal/presentation"
	redisrepo "github.com/iamasit07/4-in-a-row/client/internal/repository/redis"
	"github.com/iamasit07/4-in-a-row/client/internal/service/session"
	"github.com/iamasit07/4-in-a-row/client/internal/transport/terminal"
	wstransport "github.com/iamasit07/4-in-a-row/client/internal/transport/websocket"
)

func main() {
	cmd := &cli.Command{
		Name:  "connect4",
		Usage: "play Connect Four against a friend from the terminal",
		Description: "Starts a new game by default. Pass --join or --watch (or a shared --link)\n" +
			"to enter an existing game. Type a column number to play, \"help\" for commands.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "join", Usage: "join the game with this reference", Sources: cli.EnvVars("CONNECT4_JOIN")},
			&cli.StringFlag{Name: "watch", Usage: "watch the game with this reference", Sources: cli.EnvVars("CONNECT4_WATCH")},
			&cli.StringFlag{Name: "link", Usage: "shared link carrying ?join= or ?watch="},
			&cli.StringFlag{Name: "server", Usage: "game server WebSocket URL, overrides PAGE_HOST lookup"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "connect4:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cmd.IsSet("server") {
		cfg.ServerURL = cmd.String("server")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	entry, err := entryFromFlags(cmd)
	if err != nil {
		return err
	}

	// No endpoint means we cannot play here at all; fail before dialing.
	endpoint, err := config.ResolveEndpoint(cfg.PageHost, cfg.ServerURL)
	if err != nil {
		return err
	}

	console, err := presentation.NewConsole(os.Stdout, cfg.LinkBaseURL)
	if err != nil {
		return err
	}
	var sink session.Sink = console

	if cfg.RedisEnabled() {
		rc, err := redisrepo.Connect(ctx, cfg.RedisURL, cfg.RedisPassword, log)
		if err != nil {
			log.Warn().Err(err).Msg("[REDIS] Could not connect, session events will not be mirrored")
		} else {
			defer rc.Close()
			sink = presentation.Multi{console, presentation.NewMirror(rc, cfg.RedisChannel, log)}
		}
	}

	transport := wstransport.NewTransport(wstransport.Config{
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PongWait:     cfg.PongWait,
	}, log)

	controller, err := session.NewController(session.Options{
		Endpoint:  endpoint,
		Entry:     entry,
		Transport: transport,
		Sink:      sink,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	logStart(log, entry, endpoint)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(gctx)
	})
	g.Go(func() error {
		// Leaving the terminal ends the session.
		defer stop()
		err := terminal.NewReader(os.Stdin, os.Stdout, controller, log).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Client exited gracefully")
	return nil
}

func entryFromFlags(cmd *cli.Command) (domain.EntryParams, error) {
	entry := domain.EntryParams{Join: cmd.String("join"), Watch: cmd.String("watch")}
	if link := cmd.String("link"); link != "" {
		if entry.Join != "" || entry.Watch != "" {
			return domain.EntryParams{}, fmt.Errorf("--link cannot be combined with --join or --watch")
		}
		return domain.ParseEntryLink(link)
	}
	if err := entry.Validate(); err != nil {
		return domain.EntryParams{}, err
	}
	return entry, nil
}

func logStart(log zerolog.Logger, entry domain.EntryParams, endpoint string) {
	event := log.Info().Str("endpoint", endpoint)
	switch entry.Mode() {
	case domain.EntryJoin:
		event.Str("join", entry.Join).Msg("Joining game")
	case domain.EntryWatch:
		event.Str("watch", entry.Watch).Msg("Watching game")
	default:
		event.Msg("Starting a new game")
	}
}
