package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/iris-marketplace/iris-client/apiclient"
	"github.com/iris-marketplace/iris-client/auth"
)

// credentials is the login request body.
type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ,containsany=abcdefghijklmnopqrstuvwxyz,containsany=0123456789"`
}

// authResponse is returned by the login and refresh endpoints.
type authResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user,omitempty"`
}

// sessionStatus is printed by the session commands.
type sessionStatus struct {
	Authenticated bool            `json:"authenticated"`
	Source        string          `json:"source"`
	TokenFile     string          `json:"token_file"`
	Expired       bool            `json:"expired,omitempty"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
	User          json.RawMessage `json:"user,omitempty"`
}

var credentialsValidator = validator.New()

func validateCredentials(c credentials) error {
	err := credentialsValidator.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, credentialMessage(fe))
	}
	return fmt.Errorf("invalid credentials: %s", strings.Join(msgs, ", "))
}

func credentialMessage(fe validator.FieldError) string {
	switch fe.Field() + "." + fe.Tag() {
	case "Email.required":
		return "email is required"
	case "Email.email":
		return "please enter a valid email address"
	case "Password.required":
		return "password is required"
	case "Password.min":
		return "password must be at least 8 characters long"
	case "Password.containsany":
		return "password must contain an uppercase letter, a lowercase letter and a number"
	default:
		return fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
	}
}

func newLoginCommand(a *app) *cobra.Command {
	var (
		creds         credentials
		passwordStdin bool
		token         string
		refreshToken  string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		Long: `Sign in with email and password, or store an existing token pair with --token.
Tokens are written to auth.tokenfile (default ~/.iris/token.json) with 0600 permissions.`,
		Example: `  iris login --email chef@bistro.test --password-stdin < password.txt
  iris login --token "$IRIS_TOKEN" --refresh "$IRIS_REFRESH"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token != "" {
				if err := a.store.SetTokens(token, refreshToken); err != nil {
					return err
				}
				return a.printStatus(cmd.OutOrStdout(), nil)
			}

			if passwordStdin {
				pw, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				creds.Password = pw
			}
			if err := validateCredentials(creds); err != nil {
				return err
			}

			resp, err := apiclient.PostAs[authResponse](cmd.Context(), a.client, a.routes.Auth.Login(), creds)
			if err != nil {
				return err
			}
			if resp.Token == "" {
				return errors.New("login response did not include a token")
			}
			if err := a.store.SetTokens(resp.Token, resp.RefreshToken); err != nil {
				return err
			}
			a.log.Info().Str("token_file", a.store.Path()).Msg("Signed in")
			return a.printStatus(cmd.OutOrStdout(), resp.User)
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.Flags().StringVar(&token, "token", "", "store this access token instead of signing in")
	cmd.Flags().StringVar(&refreshToken, "refresh", "", "refresh token to store with --token")
	cmd.MarkFlagsMutuallyExclusive("token", "email")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")

	return cmd
}

func newRefreshCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new token pair",
		Long: `Exchange the stored refresh token for a new token pair. When the backend
rejects the refresh token the stored session is cleared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.store.RefreshToken()
			if err != nil {
				return err
			}
			if rt == "" {
				return errors.New("no refresh token available")
			}

			body := map[string]string{"refreshToken": rt}
			resp, err := apiclient.PostAs[authResponse](cmd.Context(), a.client, a.routes.Auth.Refresh(), body)
			if err != nil {
				if clearErr := a.store.Clear(); clearErr != nil {
					a.log.Warn().Err(clearErr).Msg("Failed to clear tokens")
				}
				return err
			}
			if resp.Token == "" {
				return errors.New("refresh response did not include a token")
			}
			if resp.RefreshToken == "" {
				resp.RefreshToken = rt
			}
			if err := a.store.SetTokens(resp.Token, resp.RefreshToken); err != nil {
				return err
			}
			return a.printStatus(cmd.OutOrStdout(), resp.User)
		},
	}
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored tokens",
		Long: `Notify the backend and remove the stored tokens. The local session is
cleared even when the backend call fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := a.store.Token(cmd.Context())
			if err != nil {
				a.log.Warn().Err(err).Msg("Failed to read stored token")
			}
			if tok != "" {
				if err := a.client.Post(cmd.Context(), a.routes.Auth.Logout(), map[string]any{}, nil); err != nil {
					a.log.Warn().Err(err).Msg("Remote logout failed, clearing local session")
				}
			}
			if err := a.store.Clear(); err != nil {
				return err
			}
			return a.printStatus(cmd.OutOrStdout(), nil)
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var user json.RawMessage
			if remote {
				var err error
				user, err = apiclient.GetAs[json.RawMessage](cmd.Context(), a.client, a.routes.Auth.Profile(), nil)
				if err != nil {
					return err
				}
			}
			return a.printStatus(cmd.OutOrStdout(), user)
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "also fetch the profile from the backend")

	return cmd
}

func (a *app) printStatus(w io.Writer, user json.RawMessage) error {
	status := sessionStatus{
		Source:    a.source,
		TokenFile: a.store.Path(),
		User:      user,
	}

	switch a.source {
	case sourceFile:
		tokens, err := a.store.Load()
		if err != nil {
			return err
		}
		status.Authenticated = a.store.IsAuthenticated()
		status.Expired = tokens.Token != "" && auth.Expired(tokens.Token, time.Now())
		if !tokens.UpdatedAt.IsZero() {
			status.UpdatedAt = &tokens.UpdatedAt
		}
	default:
		// config and oauth tokens are resolved per request
		status.Authenticated = true
	}

	return printJSON(w, status)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
