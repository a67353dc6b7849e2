// Command adduser creates an account, or resets its password, from the
// command line.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"financas/internal/auth"
	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/core"
	"financas/internal/log"
)

func main() {
	cli.LoadEnvFile()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	username    string
	email       string
	password    string
	dbPath      string
	setPassword bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "adduser --user <username> [--email <email>] [--password <password>] [--db <path>]",
		Short:         "Create a financas account",
		Long:          "Create a financas account. The password is prompted for when --password is omitted.\nWith --set-password the password of an existing account is replaced instead.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.dbPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				opts.dbPath = cfg.SQLiteDBPath
			}
			return execute(cmd.Context(), opts, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.username, "user", "u", "", "username (required)")
	f.StringVar(&opts.email, "email", "", "email address")
	f.StringVarP(&opts.password, "password", "p", "", "password (prompted for if omitted)")
	f.StringVar(&opts.dbPath, "db", "", "path to the database file (default $SQLITE_DB_PATH or ./data/financas.db)")
	f.BoolVar(&opts.setPassword, "set-password", false, "replace the password of an existing user")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func execute(ctx context.Context, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.New(log.Config{Output: stderr, Component: log.ComponentCLI})
	ctx = log.NewContext(ctx, logger)

	password := opts.password
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be empty")
	}

	repo, err := cli.InitSQLite(logger, opts.dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	if opts.setPassword {
		if len([]rune(password)) < core.MinPasswordLen {
			return fmt.Errorf("password must have at least %d characters", core.MinPasswordLen)
		}
		hash, err := auth.HashPassword(password, 0)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := repo.UpdatePassword(ctx, opts.username, hash); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("user %s does not exist", opts.username)
			}
			return err
		}
		fmt.Fprintf(stdout, "Password of %s updated\n", opts.username)
		return nil
	}

	exists, err := repo.UsernameExists(ctx, strings.TrimSpace(opts.username))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("user %s already exists", opts.username)
	}

	user, err := auth.NewSessionAuth(repo, auth.Options{}).Register(ctx, core.RegistrationInput{
		Username: opts.username,
		Email:    opts.email,
		Password: password,
		Confirm:  password,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Username, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	// Pipes and tests.
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
