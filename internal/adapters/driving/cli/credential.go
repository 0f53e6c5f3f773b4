package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/quarry-search/quarry/internal/core/domain"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage credentials",
}

var credentialAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a credential",
	Long: `Stores authentication material for a source.

Pass --token for a static token (PAT, developer token), or the
--access-token/--refresh-token/--client-id/--client-secret/--token-url
group for OAuth with automatic refresh.`,
	RunE: runCredentialAdd,
}

var (
	credSource       string
	credShared       bool
	credStaticToken  string
	credAccessToken  string
	credRefreshToken string
	credClientID     string
	credClientSecret string
	credTokenURL     string
	credExpiry       string
)

func init() {
	credentialAddCmd.Flags().StringVar(&credSource, "source", "", "source type this credential authenticates")
	credentialAddCmd.Flags().BoolVar(&credShared, "shared", false, "usable by any pair")
	credentialAddCmd.Flags().StringVar(&credStaticToken, "token", "", "static token")
	credentialAddCmd.Flags().StringVar(&credAccessToken, "access-token", "", "OAuth access token")
	credentialAddCmd.Flags().StringVar(&credRefreshToken, "refresh-token", "", "OAuth refresh token")
	credentialAddCmd.Flags().StringVar(&credClientID, "client-id", "", "OAuth client ID")
	credentialAddCmd.Flags().StringVar(&credClientSecret, "client-secret", "", "OAuth client secret")
	credentialAddCmd.Flags().StringVar(&credTokenURL, "token-url", "", "OAuth token endpoint")
	credentialAddCmd.Flags().StringVar(&credExpiry, "expiry", "", "access token expiry (RFC 3339)")

	credentialCmd.AddCommand(credentialAddCmd)
	rootCmd.AddCommand(credentialCmd)
}

func runCredentialAdd(cmd *cobra.Command, _ []string) error {
	if err := initServices(); err != nil {
		return err
	}

	cred := domain.Credential{
		Source: credSource,
		Shared: credShared,
	}
	switch {
	case credStaticToken != "":
		cred.Static = &domain.StaticPayload{Token: credStaticToken}
	case credAccessToken != "":
		payload := &domain.OAuthPayload{
			AccessToken:  credAccessToken,
			RefreshToken: credRefreshToken,
			TokenType:    "Bearer",
			ClientID:     credClientID,
			ClientSecret: credClientSecret,
			TokenURL:     credTokenURL,
		}
		if credExpiry != "" {
			expiry, err := time.Parse(time.RFC3339, credExpiry)
			if err != nil {
				return errors.New("invalid --expiry, expected RFC 3339 timestamp")
			}
			payload.Expiry = expiry
		}
		cred.OAuth = payload
	default:
		return errors.New("either --token or --access-token is required")
	}

	created, err := adminService.CreateCredential(context.Background(), cred)
	if err != nil {
		return err
	}

	cmd.Printf("Created credential %s\n", created.ID)
	return nil
}
