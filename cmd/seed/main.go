// Command seed fills a database with demo users, categories and posts.
//
//	seed -users 5 -posts 20
//
// Every seeded account uses the password "password123". Data goes through
// the services, so the usual rules apply (unique titles, default category).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/blogsite/internal/apperror"
	"github.com/sakif/blogsite/internal/auth"
	"github.com/sakif/blogsite/internal/repository/sqlite"
	"github.com/sakif/blogsite/internal/service"
)

const seedPassword = "password123"

var categoryNames = []string{"Tech", "Travel", "Food", "Books", "Go", "Life"}

type options struct {
	dbPath string
	users  int
	posts  int
	seed   int64
}

func main() {
	var opts options
	flag.StringVar(&opts.dbPath, "db", envOr("BLOG_DATABASE_PATH", "data/blog.db"), "database path")
	flag.IntVar(&opts.users, "users", 5, "number of users to create")
	flag.IntVar(&opts.posts, "posts", 20, "number of posts to create")
	flag.Int64Var(&opts.seed, "seed", 0, "random seed (0 = time based)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(context.Background(), opts, logger); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	if opts.users < 1 {
		return errors.New("need at least one user")
	}
	if opts.seed == 0 {
		opts.seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(opts.seed)

	db, err := sqlite.New(opts.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	quiet := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	users := service.NewUserService(db, db, auth.NewPasswordService(auth.DefaultCost), quiet)
	categories := service.NewCategoryService(db, db, quiet)
	posts := service.NewPostService(db, db, categories, quiet)

	if _, err := categories.EnsureDefault(ctx); err != nil {
		return err
	}

	authors, err := seedUsers(ctx, users, opts.users, func() service.NewUser {
		return service.NewUser{
			Email:     strings.ToLower(faker.Email()),
			Password:  seedPassword,
			FirstName: faker.FirstName(),
			LastName:  faker.LastName(),
			AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", faker.UUID()),
		}
	})
	if err != nil {
		return err
	}

	created := 0
	for attempts := 0; created < opts.posts && attempts < opts.posts*5; attempts++ {
		_, err := posts.Create(ctx, authors[faker.Number(0, len(authors)-1)], service.PostInput{
			Title:    strings.TrimSuffix(faker.Sentence(5), "."),
			Content:  faker.Paragraph(1, 3, 5, "\n"),
			ImageURL: fmt.Sprintf("https://picsum.photos/seed/%s/800/600", faker.UUID()),
			Category: faker.RandomString(categoryNames),
		})
		if errors.Is(err, apperror.ErrValidation) {
			continue
		}
		if err != nil {
			return fmt.Errorf("creating post: %w", err)
		}
		created++
	}

	logger.Info("seed complete",
		slog.String("database", opts.dbPath),
		slog.Int("users", len(authors)),
		slog.Int("posts", created),
		slog.String("password", seedPassword),
	)
	return nil
}

// seedUsers creates n accounts from draw, redrawing on validation errors
// such as an email collision. It gives up after 5n draws.
func seedUsers(ctx context.Context, users *service.UserService, n int, draw func() service.NewUser) ([]service.Caller, error) {
	var authors []service.Caller
	for attempts := 0; len(authors) < n && attempts < n*5; attempts++ {
		u, err := users.CreateUser(ctx, draw())
		if errors.Is(err, apperror.ErrValidation) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("creating user: %w", err)
		}
		authors = append(authors, service.Caller{UserID: u.ID})
	}
	if len(authors) < n {
		return nil, fmt.Errorf("created only %d of %d users", len(authors), n)
	}
	return authors, nil
}
