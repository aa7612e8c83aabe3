/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sorynturda/link-sharing/internal/api"
	"github.com/sorynturda/link-sharing/internal/session"
	"github.com/sorynturda/link-sharing/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, err := passwordFlag(cmd)
		if err != nil {
			return err
		}

		resp, err := a.client.Register(cmd.Context(), api.RegisterRequest{
			Username: username,
			Email:    email,
			Password: password,
		})
		if err != nil {
			return authError("registration failed", err)
		}
		return signIn(cmd, a, resp)
	},
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the session token",
	Long: `Sign in with a username and password. The password is read from the
terminal when --password is omitted.

	linkshare login -u alice
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		username, _ := cmd.Flags().GetString("username")
		password, err := passwordFlag(cmd)
		if err != nil {
			return err
		}

		resp, err := a.client.Login(cmd.Context(), api.LoginRequest{Username: username, Password: password})
		if err != nil {
			return authError("login failed", err)
		}
		return signIn(cmd, a, resp)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.holder.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		claims, err := a.authenticate(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "username: %s\n", claims.Subject)
		fmt.Fprintf(out, "user id:  %d\n", claims.UserID)
		fmt.Fprintf(out, "role:     %s\n", claims.Role)
		if claims.ExpiresAt != nil {
			fmt.Fprintf(out, "expires:  %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)

	registerCmd.Flags().StringP("username", "u", "", "account name")
	registerCmd.Flags().StringP("email", "e", "", "email address")
	registerCmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")
	_ = registerCmd.MarkFlagRequired("username")
	_ = registerCmd.MarkFlagRequired("email")

	loginCmd.Flags().StringP("username", "u", "", "account name")
	loginCmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("username")
}

// signIn stores the token and tells the user where to go next.
func signIn(cmd *cobra.Command, a *app, resp types.AuthResponse) error {
	if err := a.holder.Set(resp.Token); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	claims, _ := session.DecodeClaims(resp.Token)
	username := claims.Subject
	if username == "" {
		username = resp.Username
	}
	role := claims.Role
	if role == "" {
		role = resp.Role
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Logged in as %s\n", username)
	if role == types.RoleAdmin {
		fmt.Fprintln(out, "Next: linkshare admin users")
	} else {
		fmt.Fprintln(out, "Next: linkshare files list")
	}
	return nil
}

func authError(prefix string, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("%s: invalid username or password", prefix)
	}
	if msg := api.Message(err); msg != "" {
		return fmt.Errorf("%s: %s", prefix, msg)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}

func passwordFlag(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}
	return readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}
