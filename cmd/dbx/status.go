package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sdelicata/dbx/pkg/cache"
	"github.com/sdelicata/dbx/pkg/config"
	"github.com/sdelicata/dbx/pkg/contenthash"
	"github.com/sdelicata/dbx/pkg/dropbox"
	"github.com/sdelicata/dbx/pkg/matcher"
	"github.com/sdelicata/dbx/pkg/report"
)

func newStatusCmd(a *app) *cobra.Command {
	var (
		localDir string
		account  string
		workers  int
		asJSON   bool
		output   string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Compare a folder of the local Dropbox with the server",
		Long: `Scans a folder inside the desktop client's Dropbox folder, lists the
matching remote folder and compares content hashes. Hashes of unchanged
local files are cached between runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if localDir == "" {
				return errors.New("--local flag is required")
			}
			if workers < 1 {
				a.logger.Warn().Int("value", workers).Msg("--workers must be at least 1, clamping to 1")
				workers = 1
			}

			absLocal, err := filepath.Abs(localDir)
			if err != nil {
				return fmt.Errorf("resolving local path: %w", err)
			}

			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			// Step 1: Authenticate with Dropbox
			a.logger.Info().Msg("authenticating with Dropbox...")
			accountID, err := client.GetAccountID(ctx)
			if err != nil {
				return fmt.Errorf("authenticating with Dropbox: %w", err)
			}
			a.logger.Info().Str("account_id", accountID).Msg("authenticated")

			// Step 2: Map the local folder to its remote path
			dropboxRoot, err := dropbox.DetectRootPath(account)
			if err != nil {
				return err
			}
			a.logger.Info().Str("dropbox_root", dropboxRoot).Msg("detected Dropbox root")

			remotePath, err := dropbox.ComputeRemotePath(absLocal, dropboxRoot)
			if err != nil {
				return err
			}
			a.logger.Info().Str("remote_path", remotePath).Msg("computed remote path")

			// Step 3: Scan local files and list the remote folder
			a.logger.Info().Str("dir", absLocal).Msg("scanning local files...")
			localFiles, err := matcher.ScanLocal(absLocal)
			if err != nil {
				return fmt.Errorf("scanning local directory: %w", err)
			}
			a.logger.Info().Int("count", len(localFiles)).Msg("local files found")

			a.logger.Info().Msg("listing Dropbox files...")
			entries, _, err := client.FilesListFolderAll(ctx, &dropbox.ListFolderArg{Path: remotePath, Recursive: true})
			if err != nil {
				return fmt.Errorf("listing Dropbox folder: %w", err)
			}

			result := matcher.Match(absLocal, remotePath, localFiles, dropbox.FilesOnly(entries))
			a.logger.Info().
				Int("matched", len(result.Matched)).
				Int("unmatched_local", len(result.UnmatchedLocal)).
				Int("unmatched_dropbox", len(result.UnmatchedRemote)).
				Msg("matching complete")

			// Step 4: Hash matched files with the worker pool
			hashes := openHashCache(a)
			total := len(result.Matched)
			a.logger.Info().Int("workers", workers).Msg("hashing local files...")

			r := matcher.Compare(ctx, result, workers,
				func(path string) (string, error) { return hashes.Hash(path, contenthash.File) },
				func(done, total int) {
					fmt.Fprintf(cmd.ErrOrStderr(), "\rHashing: %d/%d files", done, total)
				},
			)
			fmt.Fprintf(cmd.ErrOrStderr(), "\rHashing: %d/%d files\n", total, total)

			if err := hashes.Save(); err != nil {
				a.logger.Warn().Err(err).Msg("saving hash cache")
			}
			for path, err := range r.Failed {
				a.logger.Warn().Err(err).Str("file", path).Msg("error hashing file")
			}

			// Step 5: Report
			status := report.StatusFrom(remotePath, r)
			if output != "" {
				if err := report.WriteFile(output, status); err != nil {
					return err
				}
				a.logger.Info().Str("output", output).Msg("status written")
			}
			if asJSON {
				return report.Write(cmd.OutOrStdout(), status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n--- Status ---\n")
			fmt.Fprintf(out, "Remote path:  %s\n", remotePath)
			fmt.Fprintf(out, "In sync:      %d\n", len(status.InSync))
			fmt.Fprintf(out, "Modified:     %d\n", len(status.Modified))
			fmt.Fprintf(out, "Local only:   %d\n", len(status.LocalOnly))
			fmt.Fprintf(out, "Remote only:  %d\n", len(status.RemoteOnly))
			fmt.Fprintf(out, "Failed:       %d\n", len(status.Failed))
			for _, p := range status.Modified {
				fmt.Fprintf(out, "  modified: %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&localDir, "local", "", "Path to the local folder to check (required, must be inside the Dropbox folder)")
	cmd.Flags().StringVar(&account, "account", "", "Desktop account whose folder holds --local: personal or business (default: personal if linked)")
	cmd.Flags().IntVar(&workers, "workers", 8, "Number of parallel workers for hashing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	cmd.Flags().StringVar(&output, "output", "", "Also write the status as JSON to this file")
	return cmd
}

// openHashCache loads the hash cache from the config directory, falling back
// to an in-memory cache when the directory cannot be determined.
func openHashCache(a *app) *cache.HashCache {
	store, err := config.Open()
	if err != nil {
		a.logger.Warn().Err(err).Msg("hash cache disabled")
		return cache.Load("", a.logger)
	}
	return cache.Load(cache.DefaultPath(store.Dir()), a.logger)
}
