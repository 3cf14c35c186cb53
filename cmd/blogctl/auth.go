package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hypergopher/blogsync"
)

func loginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and store the session credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if client.Guard(blogsync.SignInPath) == blogsync.RouteToHome {
				return fmt.Errorf("already signed in; run 'blogctl logout' first")
			}

			if password == "" {
				password, err = readLine("Password: ")
				if err != nil {
					return err
				}
			}

			if err := client.Login(ctx, args[0], password); err != nil {
				return err
			}

			fmt.Println("Signed in")
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func registerCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "register <name> <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if password == "" {
				password, err = readLine("Password: ")
				if err != nil {
					return err
				}
			}

			if err := client.Register(ctx, args[0], args[1], password); err != nil {
				return err
			}

			fmt.Println("Account created; run 'blogctl login' to sign in")
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Erase the session credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := client.Logout(ctx); err != nil {
				return err
			}

			fmt.Println("Signed out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated viewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			client, cleanup, err := newClient(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if !client.Session().Authenticated() {
				fmt.Println("Not signed in")
				return nil
			}

			me, err := client.Me(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%s <%s>\n", me.Name, me.Email)
			return nil
		},
	}
}

func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
