package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	identity "github.com/goliatone/go-identity"
	"golang.org/x/term"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "createsuperuser:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in *os.File, out io.Writer) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	email := fs.String("email", "", "superuser email")
	username := fs.String("username", "", "superuser username, defaults to the email")
	mobile := fs.String("mobile", "", "ten digit mobile number")
	password := fs.String("password", "", "password, prompted for when empty")
	promote := fs.Bool("promote", false, "grant staff and superuser to an existing user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := identity.LoadDatabaseOptions()
	if err != nil {
		return err
	}

	zl, err := identity.NewZap(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := identity.NewZapLogger(zl)

	db, err := identity.OpenDB(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := identity.NewRepositoryManager(db)
	store := identity.NewIdentityStore(repo).
		WithLogger(logger).
		WithHashid(cfg.UseHashid)

	reader := bufio.NewReader(in)

	if *email == "" {
		if *email, err = prompt(reader, out, "Email: "); err != nil {
			return err
		}
	}

	if *promote {
		user, err := repo.Users().GetByEmail(ctx, identity.NormalizeEmail(*email))
		if err != nil {
			return err
		}
		user, err = store.SetCapabilities(ctx, user.ID, identity.Capabilities{
			Active:    true,
			Staff:     true,
			Superuser: true,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Promoted %s to superuser.\n", user.Email)
		return nil
	}

	if *password == "" {
		if *password, err = readPassword(in, reader, out); err != nil {
			return err
		}
	}

	user, err := store.CreateSuperuser(ctx, identity.CreateUserInput{
		Email:    *email,
		Username: *username,
		Mobile:   *mobile,
		Password: *password,
	})
	if err != nil {
		if fields, ok := identity.ValidationFields(err); ok {
			for field, msg := range fields {
				fmt.Fprintf(out, "%s: %s\n", field, msg)
			}
		}
		return err
	}

	fmt.Fprintf(out, "Superuser %s created.\n", user.Email)
	return nil
}

func prompt(r *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword prompts without echo on a terminal and falls back to a
// plain line read otherwise
func readPassword(in *os.File, r *bufio.Reader, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return prompt(r, out, "Password: ")
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}

	fmt.Fprint(out, "Password (again): ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
