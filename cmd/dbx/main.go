// Package main is the entry point for the dbx CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sdelicata/dbx/pkg/config"
	"github.com/sdelicata/dbx/pkg/dropbox"
)

// app holds the state shared by every command.
type app struct {
	token      string
	logLevel   string
	namespace  string
	asMember   string
	maxRetries int
	tpsLimit   float64
	envFile    string

	// Overridden in tests.
	clientOpts []dropbox.Option
	tokenURL   string

	logger zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		a.logger.Error().Err(err).Msg("dbx failed")
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dbx",
		Short:         "Work with files in Dropbox from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = newLogger(cmd, a.logLevel)
			return loadEnv(a.envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.token, "token", "", "Dropbox access token (also read from DROPBOX_TOKEN env var)")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.StringVar(&a.namespace, "namespace", "", "Resolve paths against this namespace ID instead of the home folder")
	flags.StringVar(&a.asMember, "as-member", "", "Team member ID to act as (team tokens only)")
	flags.IntVar(&a.maxRetries, "retries", 5, "Retries on rate limiting and server errors")
	flags.Float64Var(&a.tpsLimit, "tpslimit", 0, "Limit API calls per second (0 for no limit)")
	flags.StringVar(&a.envFile, "env-file", ".env", "File of KEY=value lines to load into the environment if present")

	root.AddCommand(
		newLoginCmd(a),
		newRevokeCmd(a),
		newWhoamiCmd(a),
		newStatCmd(a),
		newMkdirCmd(a),
		newLsCmd(a),
		newPutCmd(a),
		newGetCmd(a),
		newRmCmd(a),
		newStatusCmd(a),
		newWatchCmd(a),
	)
	return root
}

func newLogger(cmd *cobra.Command, levelName string) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		With().Timestamp().Logger().
		Level(level)
}

// loadEnv reads variables such as DROPBOX_TOKEN from path. Variables that are
// already set win, and a missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// client builds a Dropbox client. The token comes from --token, then
// DROPBOX_TOKEN, then the refresh credentials saved by dbx login.
func (a *app) client(ctx context.Context) (*dropbox.Client, error) {
	client, _, err := a.connect(ctx)
	return client, err
}

// connect is client that also returns the store the credentials came from,
// or nil when the token was given directly.
func (a *app) connect(ctx context.Context) (*dropbox.Client, *config.Store, error) {
	opts := []dropbox.Option{
		dropbox.WithMaxRetries(a.maxRetries),
		dropbox.WithMetadataCache(time.Minute),
	}
	if a.namespace != "" {
		opts = append(opts, dropbox.WithPathRoot(dropbox.PathRoot{Tag: dropbox.PathRootNamespaceID, NamespaceID: a.namespace}))
	}
	if a.asMember != "" {
		opts = append(opts, dropbox.WithSelectUser(a.asMember))
	}
	if a.tpsLimit > 0 {
		opts = append(opts, dropbox.WithRateLimit(a.tpsLimit, 1))
	}
	opts = append(opts, a.clientOpts...)

	tok := a.token
	if tok == "" {
		tok = os.Getenv("DROPBOX_TOKEN")
	}
	if tok != "" {
		return dropbox.NewClient(tok, a.logger, opts...), nil, nil
	}

	store, err := config.Open()
	if err != nil {
		return nil, nil, err
	}
	creds, err := store.Credentials()
	if err != nil {
		return nil, nil, err
	}
	if !creds.Complete() {
		return nil, nil, errors.New("no Dropbox token: use --token, set DROPBOX_TOKEN or run dbx login")
	}

	a.logger.Debug().Msg("using stored refresh token")
	ts := dropbox.NewTokenSource(ctx, a.tokenURL, creds.AppKey, creds.AppSecret, creds.RefreshToken)
	return dropbox.NewClient("", a.logger, append(opts, dropbox.WithTokenSource(ts))...), store, nil
}
