package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kendallb/PhalangerMySql/internal/config"
	"github.com/kendallb/PhalangerMySql/internal/db"
	"github.com/kendallb/PhalangerMySql/internal/export"
	"github.com/kendallb/PhalangerMySql/internal/logger"
	"github.com/kendallb/PhalangerMySql/internal/session"
	"github.com/kendallb/PhalangerMySql/internal/styles"
	"github.com/urfave/cli/v3"
)

type App struct {
	out io.Writer
	// progress receives the spinner shown while statements run. Nil hides it.
	progress io.Writer

	cfgPath   string
	config    *config.Config
	session   *session.Session
	link      uuid.UUID
	logCloser io.Closer
}

func NewApp(out io.Writer) *App {
	return &App{out: out}
}

// Command builds the command tree. Every subcommand runs against a fresh
// session that is torn down once it returns.
func (a *App) Command() *cli.Command {
	return &cli.Command{
		Name:  "phpmysql",
		Usage: "Run statements through the MySQL link adapter",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.CfgFile,
				Usage:   "Path to the config file",
			},
			&cli.StringFlag{
				Name:    "link",
				Aliases: []string{"l"},
				Usage:   "Saved connection to use instead of the current one",
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: fmt.Sprintf("Driver for --dsn, one of %v. Inferred when empty", db.SupportedDialects()),
			},
			&cli.StringFlag{
				Name:  "dsn",
				Usage: "Connection string, bypassing saved connections",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Value: -2,
				Usage: "Command timeout in seconds. 0 disables it, -1 keeps the driver default",
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			{
				Name:      "query",
				Aliases:   []string{"run"},
				Usage:     "Run a statement and print its rows",
				ArgsUsage: "<sql>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "raw", Usage: "Print values as the driver returned them"},
					&cli.BoolFlag{Name: "echo", Usage: "Print the statement before its rows"},
					&cli.IntFlag{Name: "limit", Usage: "Print at most this many rows"},
					&cli.IntFlag{Name: "width", Usage: "Cell width"},
				},
				Action: a.handleQuery,
			},
			{
				Name:      "exec",
				Usage:     "Run a statement that returns no rows",
				ArgsUsage: "<sql>",
				Action:    a.handleExec,
			},
			{
				Name:      "fields",
				Usage:     "Print the schema of a statement's result",
				ArgsUsage: "<sql>",
				Action:    a.handleFields,
			},
			{
				Name:      "var",
				Usage:     "Print a server global variable",
				ArgsUsage: "<name>",
				Action:    a.handleVar,
			},
			{
				Name:      "export",
				Usage:     "Write a statement's rows to a file",
				ArgsUsage: "<sql>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Required: true,
						Usage:    fmt.Sprintf("Output file, format chosen by extension %v", export.Formats),
					},
				},
				Action: a.handleExport,
			},
			{
				Name:      "use",
				Aliases:   []string{"switch"},
				Usage:     "Make a saved connection the current one",
				ArgsUsage: "<name>",
				Action:    a.handleUse,
			},
		},
	}
}

func (a *App) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	a.cfgPath = cmd.String("config")
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return ctx, fmt.Errorf("could not load config file: %w", err)
	}
	a.config = cfg

	closer, err := logger.Setup(cfg.Logging)
	if err != nil {
		return ctx, fmt.Errorf("could not set up logging: %w", err)
	}
	a.logCloser = closer
	styles.SetAccent(cfg.Style.Accent)

	settings := cfg.Settings()
	if timeout := cmd.Int("timeout"); timeout >= -1 {
		settings.DefaultCommandTimeout = int(timeout)
	}
	a.session = session.New(settings, slog.Default())
	return ctx, nil
}

func (a *App) after(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	if a.session != nil {
		errs = append(errs, a.session.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

// connect opens the link the command line selects: --dsn when given,
// otherwise the named or current saved connection.
func (a *App) connect(ctx context.Context, cmd *cli.Command) (*db.Connection, error) {
	driver, dsn := cmd.String("driver"), cmd.String("dsn")
	if dsn == "" {
		profile, err := a.config.Connection(cmd.String("link"))
		if err != nil {
			return nil, err
		}
		if dsn, err = profile.ResolveDSN(); err != nil {
			return nil, err
		}
		driver = profile.Driver
	}

	id, err := a.session.Connect(ctx, driver, dsn)
	if err != nil {
		return nil, a.failure(err)
	}
	a.link = id
	slog.DebugContext(ctx, "Connected", "link", id, "session", a.session.ID())
	return a.session.Connection(id), nil
}

// failure formats err the way a script would read it back. Driver errors
// carry their code; errors from this side are returned unchanged.
func (a *App) failure(err error) error {
	message, merr := db.ExceptionMessage(err)
	if merr != nil {
		return err
	}
	if a.link != uuid.Nil {
		if conn := a.session.Connection(a.link); conn != nil && conn.LastErrorNumber() == -1 {
			slog.Debug("Statement failed", "link", a.link, "trace", conn.LastErrorMessage())
		}
	}
	return errors.New(message)
}

func sqlArg(cmd *cli.Command, what string) (string, error) {
	if cmd.NArg() != 1 {
		return "", fmt.Errorf("usage: %s %s <%s>", cmd.Root().Name, cmd.Name, what)
	}
	return cmd.Args().First(), nil
}
