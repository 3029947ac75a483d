package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZJUSCT/CSOJ-scoreboard/internal/api/admin"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/api/user"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/config"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/contest"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/database"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/export"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/grading"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/pubsub"
	"github.com/ZJUSCT/CSOJ-scoreboard/internal/scoreboard"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Version = "dev-build"

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Fprintf(os.Stderr, "ZJUSCT CSOJ Scoreboard %s\n\n", Version)

	app := &cli.App{
		Name:    "scoreboard",
		Usage:   "contest standings, score history and achievements",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "path to config file",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			syncCommand(),
			recomputeCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads the config, installs the global logger and opens the store.
func setup(c *cli.Context) (*config.Config, *gorm.DB, func(), error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("can't initialize zap logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	db, err := database.Init(cfg.Storage.Driver, cfg.Storage.Database)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	zap.S().Infof("%s database initialized successfully", cfg.Storage.Driver)

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = logger.Sync()
	}
	return cfg, db, cleanup, nil
}

func newLogger(cfg config.Logger) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Level == "debug" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = level
	}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}
	return zc.Build()
}

func newCache(cfg config.Cache) (scoreboard.Cache, func(), error) {
	if cfg.URL == "" {
		return nil, func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	zap.S().Infof("scoreboard cache enabled (ttl %s)", cfg.TTL)
	return scoreboard.NewRedisCache(client, cfg.TTL, zap.L()), func() { _ = client.Close() }, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the user and admin HTTP servers",
		Action: func(c *cli.Context) error {
			cfg, db, cleanup, err := setup(c)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if ids, err := contest.Sync(db, cfg.Contests, time.Now()); err != nil {
				zap.S().Errorf("failed to load contests: %v", err)
			} else {
				zap.S().Infof("loaded %d contests from %s", len(ids), cfg.Contests)
			}

			scoreboard.RegisterMetrics()
			grading.RegisterMetrics()

			cache, closeCache, err := newCache(cfg.Cache)
			if err != nil {
				return err
			}
			defer closeCache()

			opts := []scoreboard.Option{}
			if cache != nil {
				opts = append(opts, scoreboard.WithCache(cache))
			}
			svc := scoreboard.NewService(database.NewStore(db), zap.L(), opts...)

			broker := pubsub.GetBroker()
			recorder := grading.NewRecorder(db, broker, zap.L())
			go grading.WatchScores(ctx, broker, svc)

			if cfg.NATS.URL != "" {
				conn, err := nats.Connect(cfg.NATS.URL, nats.Name("CSOJ Scoreboard"))
				if err != nil {
					return fmt.Errorf("failed to connect to nats: %w", err)
				}
				defer conn.Close()
				consumer := grading.NewConsumer(conn, cfg.NATS.Subject, cfg.NATS.Queue, recorder, zap.L())
				if err := consumer.Start(ctx); err != nil {
					return fmt.Errorf("failed to subscribe to grading results: %w", err)
				}
			}

			servers := []*http.Server{{
				Addr:    cfg.Listen,
				Handler: user.NewUserRouter(cfg, db, svc),
			}}
			if cfg.Admin.Enabled {
				servers = append(servers, &http.Server{
					Addr:    cfg.Admin.Listen,
					Handler: admin.NewAdminRouter(cfg, db, svc, recorder),
				})
			}

			errCh := make(chan error, len(servers))
			for _, srv := range servers {
				go func(srv *http.Server) {
					zap.S().Infof("starting server at %s", srv.Addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- fmt.Errorf("server at %s: %w", srv.Addr, err)
					}
				}(srv)
			}

			var runErr error
			select {
			case <-ctx.Done():
			case runErr = <-errCh:
			}
			zap.S().Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			for _, srv := range servers {
				if err := srv.Shutdown(shutdownCtx); err != nil {
					zap.S().Warnf("failed to shut down server at %s: %v", srv.Addr, err)
				}
			}
			return runErr
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "load contest definitions from disk into the store",
		Action: func(c *cli.Context) error {
			cfg, db, cleanup, err := setup(c)
			if err != nil {
				return err
			}
			defer cleanup()

			ids, err := contest.Sync(db, cfg.Contests, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("synced %d contests: %v\n", len(ids), ids)
			return nil
		},
	}
}

func recomputeCommand() *cli.Command {
	return &cli.Command{
		Name:      "recompute",
		Usage:     "rebuild the best scores of a contest from its submissions",
		ArgsUsage: "<contest-id>",
		Action: func(c *cli.Context) error {
			contestID, err := scoreboard.ParseID(c.Args().First())
			if err != nil {
				return err
			}
			_, db, cleanup, err := setup(c)
			if err != nil {
				return err
			}
			defer cleanup()

			db = db.WithContext(c.Context)
			if _, err := database.GetContest(db, contestID); err != nil {
				return err
			}
			n, err := database.RecalculateContest(db, contestID)
			if err != nil {
				return err
			}
			fmt.Printf("recomputed %d scores for contest %d\n", n, contestID)
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write a contest scoreboard to an xlsx file",
		ArgsUsage: "<contest-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file (default contest-<id>-scoreboard.xlsx)",
			},
		},
		Action: func(c *cli.Context) error {
			contestID, err := scoreboard.ParseID(c.Args().First())
			if err != nil {
				return err
			}
			_, db, cleanup, err := setup(c)
			if err != nil {
				return err
			}
			defer cleanup()

			svc := scoreboard.NewService(database.NewStore(db), zap.L())
			sb, err := svc.Scoreboard(c.Context, contestID, scoreboard.Caller{Role: scoreboard.RoleAdmin})
			if err != nil {
				return err
			}
			data, err := export.ScoreboardXLSX(sb)
			if err != nil {
				return err
			}

			out := c.String("output")
			if out == "" {
				out = fmt.Sprintf("contest-%d-scoreboard.xlsx", contestID)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %d rows to %s\n", len(sb.Rows), out)
			return nil
		},
	}
}
