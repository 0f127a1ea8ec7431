package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdelicata/dbx/pkg/dropbox"
	"github.com/sdelicata/dbx/pkg/report"
)

func newWatchCmd(a *app) *cobra.Command {
	var timeout uint64

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Print changes below a folder as they happen",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			path := ""
			if len(args) == 1 {
				path = dropbox.NormalizePath(args[0])
			}

			w := &watcher{
				client:  client,
				arg:     &dropbox.ListFolderArg{Path: path, Recursive: true, IncludeDeleted: true},
				timeout: timeout,
				out:     cmd.OutOrStdout(),
				app:     a,
			}
			err = w.run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().Uint64Var(&timeout, "timeout", 30, "Seconds each longpoll waits for changes (30-480)")
	return cmd
}

type watcher struct {
	client  *dropbox.Client
	arg     *dropbox.ListFolderArg
	timeout uint64
	out     io.Writer
	app     *app
}

func (w *watcher) run(ctx context.Context) error {
	latest, err := w.client.FilesListFolderGetLatestCursor(ctx, w.arg)
	if err != nil {
		return err
	}
	cursor := latest.Cursor
	w.app.logger.Info().Str("path", w.arg.Path).Msg("watching for changes")

	for {
		res, err := w.client.FilesListFolderLongpoll(ctx, &dropbox.ListFolderLongpollArg{Cursor: cursor, Timeout: w.timeout})
		if err != nil {
			return err
		}

		if res.Changes {
			cursor, err = w.drain(ctx, cursor)
			if err != nil {
				return err
			}
		}

		if res.Backoff != nil {
			wait := time.Duration(*res.Backoff) * time.Second
			w.app.logger.Debug().Dur("wait", wait).Msg("server asked us to back off")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
}

// drain prints every change since cursor and returns the cursor to poll next.
// An expired cursor restarts from the current state of the folder.
func (w *watcher) drain(ctx context.Context, cursor string) (string, error) {
	for {
		page, err := w.client.FilesListFolderContinue(ctx, &dropbox.ListFolderContinueArg{Cursor: cursor})
		if err != nil {
			var lc *dropbox.ListFolderContinueAPIError
			if errors.As(err, &lc) && lc.Reason.Tag == dropbox.ListFolderContinueErrorReset {
				w.app.logger.Warn().Msg("cursor reset by Dropbox, resuming from the latest state")
				latest, err := w.client.FilesListFolderGetLatestCursor(ctx, w.arg)
				if err != nil {
					return "", err
				}
				return latest.Cursor, nil
			}
			return "", err
		}

		for _, md := range page.Entries {
			fmt.Fprintln(w.out, report.EntryFrom(md))
		}
		cursor = page.Cursor
		if !page.HasMore {
			return cursor, nil
		}
	}
}
