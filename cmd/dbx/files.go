package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdelicata/dbx/pkg/dropbox"
	"github.com/sdelicata/dbx/pkg/report"
	"github.com/sdelicata/dbx/pkg/worker"
)

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Print the metadata of a file or folder as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			md, err := client.FilesGetMetadata(ctx, &dropbox.GetMetadataArg{Path: dropbox.NormalizePath(args[0])})
			if err != nil {
				if dropbox.IsNotFound(err) {
					return fmt.Errorf("%s: not found", args[0])
				}
				return err
			}
			return report.Write(cmd.OutOrStdout(), md)
		},
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			res, err := client.FilesCreateFolderV2(ctx, &dropbox.CreateFolderArg{Path: dropbox.NormalizePath(args[0])})
			if err != nil {
				return err
			}
			a.logger.Info().Str("path", res.Metadata.PathDisplay).Str("id", res.Metadata.ID).Msg("folder created")
			return nil
		},
	}
}

func newLsCmd(a *app) *cobra.Command {
	var recursive, asJSON, deleted bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a folder",
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

			entries, _, err := client.FilesListFolderAll(ctx, &dropbox.ListFolderArg{
				Path:           path,
				Recursive:      recursive,
				IncludeDeleted: deleted,
			})
			if err != nil {
				return err
			}

			listing := make([]report.Entry, 0, len(entries))
			for _, md := range entries {
				listing = append(listing, report.EntryFrom(md))
			}
			sort.Slice(listing, func(i, j int) bool {
				return strings.ToLower(listing[i].Path) < strings.ToLower(listing[j].Path)
			})

			if asJSON {
				return report.Write(cmd.OutOrStdout(), listing)
			}
			for _, e := range listing {
				fmt.Fprintln(cmd.OutOrStdout(), e)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "List subfolders too")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the listing as JSON")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "Include deleted entries")
	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	var (
		overwrite bool
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "put <local>... <remote-dir>",
		Short: "Upload files into a Dropbox folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			locals := args[:len(args)-1]
			remoteDir := args[len(args)-1]

			if workers < 1 {
				a.logger.Warn().Int("value", workers).Msg("--workers must be at least 1, clamping to 1")
				workers = 1
			}

			mode := dropbox.WriteMode{Tag: dropbox.WriteModeAdd}
			if overwrite {
				mode.Tag = dropbox.WriteModeOverwrite
			}

			uploaded, errs := worker.Process(ctx, locals, workers,
				func(ctx context.Context, local string) (*dropbox.FileMetadata, error) {
					return upload(ctx, client, local, dropbox.JoinPath(remoteDir, filepath.Base(local)), mode)
				},
				func(done, total int) {
					fmt.Fprintf(cmd.ErrOrStderr(), "\rUploading: %d/%d files", done, total)
				},
			)
			fmt.Fprintln(cmd.ErrOrStderr())

			for i, md := range uploaded {
				if errs[i] != nil {
					a.logger.Warn().Err(errs[i]).Str("file", locals[i]).Msg("upload failed")
					continue
				}
				a.logger.Info().Str("path", md.PathDisplay).Str("rev", md.Rev).Msg("uploaded")
			}
			return worker.Join(errs)
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files instead of failing on conflict")
	cmd.Flags().IntVar(&workers, "workers", 4, "Number of parallel uploads")
	return cmd
}

func upload(ctx context.Context, client *dropbox.Client, local, remote string, mode dropbox.WriteMode) (*dropbox.FileMetadata, error) {
	f, err := os.Open(local)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", local)
	}
	modified := info.ModTime()

	return client.FilesUpload(ctx, &dropbox.UploadArg{
		Path:           remote,
		Mode:           mode,
		ClientModified: &modified,
	}, f)
}

func newGetCmd(a *app) *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "get <remote> [local]",
		Short: "Download a file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			md, body, err := client.FilesDownload(ctx, &dropbox.DownloadArg{Path: dropbox.NormalizePath(args[0]), Rev: rev})
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()

			local := md.Name
			if len(args) == 2 {
				local = args[1]
			}
			if err := writeFile(local, body); err != nil {
				return err
			}
			if err := os.Chtimes(local, md.ClientModified, md.ClientModified); err != nil {
				a.logger.Warn().Err(err).Str("file", local).Msg("setting modification time")
			}

			a.logger.Info().Str("path", md.PathDisplay).Str("file", local).Uint64("bytes", md.Size).Msg("downloaded")
			return nil
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "Download this revision instead of the latest")
	return cmd
}

// writeFile streams r into path through a temporary file so an interrupted
// download never leaves a truncated file behind. A replaced file keeps its
// permissions; a new one gets 0644.
func writeFile(path string, r io.Reader) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dbx-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

func newRmCmd(a *app) *cobra.Command {
	var rev string

	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			res, err := client.FilesDeleteV2(ctx, &dropbox.DeleteArg{
				Path:      dropbox.NormalizePath(args[0]),
				ParentRev: rev,
			})
			if err != nil {
				return err
			}
			a.logger.Info().Str("path", res.Metadata.Base().PathDisplay).Msg("deleted")
			return nil
		},
	}

	cmd.Flags().StringVar(&rev, "rev", "", "Only delete if the file is still at this revision")
	return cmd
}
