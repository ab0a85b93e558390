// Command devtoken signs and inspects access tokens for local development
// against a gatekeeper running with the same JWT_SECRET_KEY.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alkitu/gatekeeper/internal/access"
	"github.com/alkitu/gatekeeper/internal/gate"
	"github.com/alkitu/gatekeeper/internal/token"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:           "devtoken",
		Short:         "Sign and inspect gatekeeper access tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("read .env: %w", err)
			}
			if secret == "" {
				secret = os.Getenv("JWT_SECRET_KEY")
			}
			if secret == "" {
				return errors.New("no signing secret: pass --secret or set JWT_SECRET_KEY")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&secret, "secret", "", "HS256 secret (defaults to JWT_SECRET_KEY)")

	cmd.AddCommand(issueCmd(&secret), verifyCmd(&secret))
	return cmd
}

func issueCmd(secret *string) *cobra.Command {
	var (
		subject    token.Subject
		role       string
		status     string
		ttl        time.Duration
		unverified bool
		incomplete bool
		asCookie   bool
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := access.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q (want one of %v)", role, access.AllRoles)
			}
			subject.Role = r
			subject.AccountStatus = access.AccountStatus(status)
			subject.EmailVerified = !unverified
			subject.ProfileComplete = !incomplete

			signed, err := token.NewIssuer(*secret, ttl).Issue(subject)
			if err != nil {
				return err
			}

			if asCookie {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", gate.AccessTokenCookie, signed)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject.ID, "sub", "dev-user", "Subject id")
	cmd.Flags().StringVar(&subject.Email, "email", "dev@example.com", "Email claim")
	cmd.Flags().StringVar(&role, "role", string(access.RoleAdmin), "Role claim")
	cmd.Flags().StringVar(&status, "status", string(access.StatusActive), "Account status (ACTIVE, PENDING, ...)")
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "Token lifetime")
	cmd.Flags().BoolVar(&unverified, "unverified", false, "Mark the email as not verified")
	cmd.Flags().BoolVar(&incomplete, "incomplete", false, "Mark the profile as incomplete")
	cmd.Flags().BoolVar(&asCookie, "cookie", false, "Print as a Cookie header pair")

	return cmd
}

func verifyCmd(secret *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims := token.NewVerifier(*secret, zap.NewNop()).Verify(context.Background(), args[0])
			if claims == nil {
				return errors.New("token is not trusted (bad signature, expired or unknown role)")
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*token.Claims
				Pending string `json:"pending"`
			}{claims, claims.PendingState().String()})
		},
	}
}
