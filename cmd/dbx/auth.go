package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdelicata/dbx/pkg/config"
	"github.com/sdelicata/dbx/pkg/dropbox"
	"github.com/sdelicata/dbx/pkg/report"
)

func newLoginCmd(a *app) *cobra.Command {
	var appKey, appSecret string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize dbx and store a refresh token",
		Long: `Runs the OAuth2 code flow for your Dropbox app. Open the printed URL,
allow access and paste the code back. The refresh token is stored in the
user config directory and used whenever no --token is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if appKey == "" || appSecret == "" {
				return errors.New("--app-key and --app-secret are required")
			}

			out := cmd.ErrOrStderr()
			fmt.Fprintf(out, "1. Go to: %s\n", dropbox.AuthorizationURL(appKey))
			fmt.Fprintf(out, "2. Click \"Allow\" (you might have to log in first).\n")
			fmt.Fprintf(out, "3. Paste the authorization code here: ")

			code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && code == "" {
				return fmt.Errorf("reading authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return errors.New("empty authorization code")
			}

			refreshToken, accessToken, err := dropbox.ExchangeAuthorizationCode(cmd.Context(), appKey, appSecret, code)
			if err != nil {
				return err
			}

			creds := &config.Credentials{
				AppKey:       appKey,
				AppSecret:    appSecret,
				RefreshToken: refreshToken,
			}
			creds.AccountID, err = dropbox.NewClient(accessToken, a.logger).GetAccountID(cmd.Context())
			if err != nil {
				a.logger.Warn().Err(err).Msg("looking up the authorized account")
			}

			store, err := config.Open()
			if err != nil {
				return err
			}
			if err := store.SaveCredentials(creds); err != nil {
				return err
			}

			a.logger.Info().Str("account_id", creds.AccountID).Str("dir", store.Dir()).Msg("credentials saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&appKey, "app-key", "", "Dropbox app key")
	cmd.Flags().StringVar(&appSecret, "app-secret", "", "Dropbox app secret")
	return cmd
}

func newRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "Revoke the current token, forgetting stored credentials if they were used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, store, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.AuthTokenRevoke(cmd.Context()); err != nil {
				return err
			}
			if store == nil {
				a.logger.Info().Msg("token revoked, stored credentials left alone")
				return nil
			}
			a.logger.Info().Msg("token revoked, forgetting stored credentials")
			return store.RemoveCredentials()
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account and space usage behind the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}

			account, err := client.UsersGetCurrentAccount(ctx)
			if err != nil {
				return err
			}
			usage, err := client.UsersGetSpaceUsage(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:       %s\n", account.Name.DisplayName)
			fmt.Fprintf(out, "Email:      %s\n", account.Email)
			fmt.Fprintf(out, "Account ID: %s\n", account.AccountID)
			fmt.Fprintf(out, "Type:       %s\n", account.AccountType.Tag)
			fmt.Fprintf(out, "Root:       %s (%s)\n", account.RootInfo.RootNamespaceID, account.RootInfo.Tag)
			fmt.Fprintf(out, "Usage:      %s of %s\n", report.Size(usage.Used), report.Size(usage.Allocation.Quota()))
			return nil
		},
	}
}
