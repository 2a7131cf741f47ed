// Command promote grants the admin role to an account by email address.
// It is used to bootstrap the first administrator and can print a bearer
// token for the trigger endpoint.
//
// Usage:
//
//	promote --email=user@example.com [--token]
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres"
	"github.com/Chirantan-Dey/quiz-master/internal/adapter/postgres/account"
	"github.com/Chirantan-Dey/quiz-master/internal/app"
	"github.com/Chirantan-Dey/quiz-master/internal/auth"
	"github.com/Chirantan-Dey/quiz-master/internal/config"
	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

func main() {
	email := flag.String("email", "", "email of the account to promote to admin")
	printToken := flag.Bool("token", false, "print an access token for the promoted account")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Usage: promote --email=user@example.com [--token]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	repo := account.New(pool)

	acc, err := repo.GetByEmail(ctx, domain.NormalizeEmail(*email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			fmt.Printf("No account found with email %q.\n", *email)
		} else {
			logger.Error("lookup account", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}

	if acc.HasRole(domain.RoleAdmin) {
		fmt.Printf("Account %q is already admin.\n", acc.Email)
	} else {
		if err := repo.GrantRole(ctx, acc.ID, domain.RoleAdmin); err != nil {
			logger.Error("grant admin", slog.String("error", err.Error()))
			os.Exit(1)
		}
		acc.Roles = append(acc.Roles, domain.RoleAdmin)
		fmt.Printf("Account %q promoted to admin.\n", acc.Email)
	}

	if *printToken {
		jwtMgr := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)
		token, err := jwtMgr.GenerateAccessToken(acc.ID, acc.Email, acc.Roles)
		if err != nil {
			logger.Error("generate token", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(token)
	}
}
