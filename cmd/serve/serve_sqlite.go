package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/kursrates/cmd/env"
	"github.com/sig-0/kursrates/storage/sqlite"
)

const defaultSQLitePath = "kursrates.db"

type serveSQLiteCfg struct {
	rootCfg *serveCfg

	path string
}

// newServeSQLiteCmd creates the serve sqlite command
func newServeSQLiteCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveSQLiteCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("sqlite", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	fs.StringVar(
		&cfg.path,
		"sqlite-path",
		defaultSQLitePath,
		"the path to the SQLite database file",
	)

	return &ffcli.Command{
		Name:       "sqlite",
		ShortUsage: "serve sqlite [flags]",
		LongHelp:   "Serves the kursrates backend, using a SQLite datastore",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveSQLiteCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if err := c.rootCfg.readConfig(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Open (and migrate) the SQLite store
	store, err := sqlite.NewStorage(ctx, c.path)
	if err != nil {
		return fmt.Errorf("unable to open SQLite store, %w", err)
	}

	defer func() {
		if err := store.Close(); err != nil {
			logger.Error(
				"unable to gracefully close SQLite store",
				"err", err,
			)
		}
	}()

	logger.Info(
		"SQLite store opened",
		"path", c.path,
	)

	return c.rootCfg.run(ctx, logger, store)
}
