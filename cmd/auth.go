package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/labelfewer/internal/gmail"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access for an account",
		Long: `Run the OAuth authorization flow for a Google account and store the
resulting token locally.

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET in the environment. The
command prints an authorization URL; open it in a browser, grant access, and
paste the authorization code back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context(), account)
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to authorize (default: 'default')")
	return cmd
}

func runAuth(ctx context.Context, account string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if gmail.HasTokenForAccount(account) {
		fmt.Printf("Account %q already has a stored token; continuing will replace it.\n", account)
	}

	authURL, err := gmail.GetAuthURL()
	if err != nil {
		return fmt.Errorf("no OAuth client is configured: %w", err)
	}

	fmt.Printf("Open the following URL in a browser and grant access:\n\n%s\n\n", authURL)
	fmt.Print("Paste the authorization code: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("no authorization code provided")
	}

	if err := gmail.SaveTokenForAccount(ctx, account, code); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Printf("Token saved for account %q\n", account)
	return nil
}
