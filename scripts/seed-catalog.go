// Command seed-catalog loads a starter catalogue and a demo patron into
// one service's database, for local development and e2e runs. Run it
// once per service database; the services do not mirror seeded rows.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lendr/lendr/internal/model"
	"github.com/lendr/lendr/internal/repository"
)

type output struct {
	BooksSeeded  int    `json:"books_seeded"`
	PatronID     int64  `json:"patron_id,omitempty"`
	PatronEmail  string `json:"patron_email,omitempty"`
	PatronExists bool   `json:"patron_exists,omitempty"`
}

var starterBooks = []model.Book{
	{Title: "The Pragmatic Programmer", Author: "Hunt & Thomas", Publisher: "Addison-Wesley", Category: "Software"},
	{Title: "Structure and Interpretation of Computer Programs", Author: "Abelson & Sussman", Publisher: "MIT Press", Category: "Software"},
	{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Publisher: "Ace Books", Category: "Fiction"},
	{Title: "A Wizard of Earthsea", Author: "Ursula K. Le Guin", Publisher: "Parnassus Press", Category: "Fiction"},
	{Title: "Thinking, Fast and Slow", Author: "Daniel Kahneman", Publisher: "FSG", Category: "Psychology"},
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		patronEmail = flag.String("patron-email", "demo@lendr.local", "Demo patron email (empty to skip)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ensure schema:", err)
		os.Exit(1)
	}

	out := output{}

	now := time.Now().UTC()
	for _, book := range starterBooks {
		b := book
		b.AddedAt = now
		if err := repo.CreateBook(ctx, &b); err != nil {
			fmt.Fprintln(os.Stderr, "create book:", err)
			os.Exit(1)
		}
		out.BooksSeeded++
	}

	if *patronEmail != "" {
		patron, exists, err := ensurePatron(ctx, repo, *patronEmail)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		out.PatronID = patron.ID
		out.PatronEmail = patron.Email
		out.PatronExists = exists
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Printf("seeded %d books", out.BooksSeeded)
		if out.PatronEmail != "" {
			fmt.Printf(", patron %s (id %d)", out.PatronEmail, out.PatronID)
		}
		fmt.Println()
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

// ensurePatron creates the demo patron, reusing an existing enrollment
// with the same email so reruns stay idempotent.
func ensurePatron(ctx context.Context, repo *repository.Repository, email string) (*model.User, bool, error) {
	user := &model.User{
		Firstname: "Demo",
		Lastname:  "Patron",
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	err := repo.CreateUser(ctx, user)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrEmailExists) {
		return nil, false, fmt.Errorf("create patron: %w", err)
	}

	existing, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("look up patron: %w", err)
	}
	return existing, true, nil
}
