package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func loginCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the token",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, s *session, args []string) error {
			if email == "" {
				fmt.Print("Email: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("reading email: %w", err)
				}
				email = strings.TrimSpace(line)
			}
			if email == "" {
				return fmt.Errorf("email is required")
			}

			fmt.Print("Password: ")
			pwBytes, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
			if len(pwBytes) == 0 {
				return fmt.Errorf("password is required")
			}

			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			resp, err := s.client.Login(ctx, email, string(pwBytes))
			if err != nil {
				return fmt.Errorf("can't log in: %w", err)
			}
			if err := s.creds.Save(resp.Token); err != nil {
				return err
			}
			name := email
			if resp.User != nil && resp.User.Username != "" {
				name = resp.User.Username
			}
			fmt.Printf("Logged in as %s; token saved to %s\n", name, s.creds.Path())
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted for when empty)")
	return cmd
}

func logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, s *session, args []string) error {
			if err := s.creds.Clear(); err != nil {
				return err
			}
			fmt.Printf("Removed %s\n", s.creds.Path())
			return nil
		}),
	}
}
