package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upiguard/upiguard/internal/models"
)

// errPasswordMismatch is reported before any request is made
var errPasswordMismatch = errors.New("Passwords do not match.")

func newLoginCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			if email == "" {
				email = prompt(cmd, sess.in, "Email: ")
			}
			if password == "" {
				password = prompt(cmd, sess.in, "Password: ")
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			session, err := sess.reports().Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := saveConfig(keyToken, session.Token); err != nil {
				return err
			}
			sess.reset()

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (session expires %s)\n",
				session.User.Email, session.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (prompted when omitted)")
	return cmd
}

func newSignupCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and save its session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.SignUpRequest{}
			req.FullName, _ = cmd.Flags().GetString("name")
			req.Email, _ = cmd.Flags().GetString("email")
			req.Password, _ = cmd.Flags().GetString("password")
			req.ConfirmPassword, _ = cmd.Flags().GetString("confirm-password")

			if req.FullName == "" {
				req.FullName = prompt(cmd, sess.in, "Full name: ")
			}
			if req.Email == "" {
				req.Email = prompt(cmd, sess.in, "Email: ")
			}
			if req.Password == "" {
				req.Password = prompt(cmd, sess.in, "Password: ")
			}
			if req.ConfirmPassword == "" {
				req.ConfirmPassword = prompt(cmd, sess.in, "Confirm password: ")
			}
			if req.FullName == "" || req.Email == "" || req.Password == "" {
				return fmt.Errorf("name, email and password are required")
			}
			if req.Password != req.ConfirmPassword {
				return errPasswordMismatch
			}

			session, err := sess.reports().SignUp(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("sign-up failed: %w", err)
			}
			if err := saveConfig(keyToken, session.Token); err != nil {
				return err
			}
			sess.reset()

			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s (session expires %s)\n",
				session.User.Email, session.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().String("name", "", "Full name")
	cmd.Flags().String("email", "", "Account email")
	cmd.Flags().String("password", "", "Account password (prompted when omitted)")
	cmd.Flags().String("confirm-password", "", "Repeat the password (prompted when omitted)")
	return cmd
}

func prompt(cmd *cobra.Command, r *bufio.Reader, label string) string {
	fmt.Fprint(cmd.OutOrStdout(), label)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
