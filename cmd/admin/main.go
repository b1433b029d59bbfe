// Command admin performs account administration against the blog database.
//
//	admin createsuperuser -email root@example.com -password s3cret -first Root -last Admin
//	admin promote -email editor@example.com
//	admin list-staff
//
// It reads the same configuration as the server (config.yaml, .env and
// BLOG_* variables) but does not need auth.jwt_secret.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/config"
	"github.com/sakif/blogsite/internal/repository/sqlite"
	"github.com/sakif/blogsite/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: admin <createsuperuser|promote|list-staff> [flags]")
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return fmt.Errorf("missing command")
	}

	// No sessions are signed here, so the JWT secret is not required.
	cfg, err := config.Read("")
	if err != nil {
		return err
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is empty")
	}

	db, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	users := service.NewUserService(db, db, auth.NewPasswordService(cfg.Auth.BcryptCost), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "createsuperuser":
		return createSuperuser(ctx, users, args[1:], out)
	case "promote":
		return promote(ctx, users, args[1:], out)
	case "list-staff":
		return listStaff(ctx, users, out)
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func createSuperuser(ctx context.Context, users *service.UserService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	email := fs.String("email", "", "login email (required)")
	password := fs.String("password", "", "password (required)")
	first := fs.String("first", "Admin", "first name")
	last := fs.String("last", "User", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := users.CreateSuperuser(ctx, service.NewUser{
		Email:     *email,
		Password:  *password,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "superuser %s created (id %d)\n", u.Email, u.ID)
	return nil
}

func promote(ctx context.Context, users *service.UserService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	email := fs.String("email", "", "email of the account to promote (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	u, err := users.PromoteStaff(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is now staff\n", u.Email)
	return nil
}

func listStaff(ctx context.Context, users *service.UserService, out io.Writer) error {
	staff, err := users.ListStaff(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tSUPERUSER\tJOINED")
	for _, u := range staff {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", u.ID, u.Email, u.FullName(), u.IsSuperuser, u.DateJoined.Format(time.DateOnly))
	}
	return tw.Flush()
}
