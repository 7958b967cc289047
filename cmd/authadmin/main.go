// Command authadmin is the operator tool for the credential server. It
// talks to the database directly, so it works even when the HTTP endpoint
// is down or the target account is locked out.
//
// Usage:
//
//	authadmin unlock       clear the failed-login counter for a username
//	authadmin create-user  interactively register a new account
//
// Connection and policy settings come from the same flags and JSON config
// as the server (-d DSN, -s secret, -f policy file, -config file).
package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/commltd/authcore/internal/admincli"
	"github.com/commltd/authcore/internal/common"
	"github.com/commltd/authcore/internal/policy"
	"github.com/commltd/authcore/internal/server/config"
	"github.com/commltd/authcore/internal/server/repositories/repomanager"
	"github.com/commltd/authcore/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]

	cfg := config.LoadConfig()
	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	p, err := policy.LoadFile(cfg.PolicyFile)
	if err != nil {
		log.Fatalf("policy load error: %v", err)
	}

	accounts := services.NewAccountService(db, repomanager.NewPostgresRepositoryManager(), p, cfg)
	reader := bufio.NewReader(os.Stdin)

	switch command {
	case "unlock":
		if err := runUnlock(ctx, accounts, reader); err != nil {
			log.Fatalf("unlock: %v", err)
		}
	case "create-user":
		if err := runCreateUser(ctx, accounts, reader); err != nil {
			log.Fatalf("create-user: %v", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: authadmin <unlock|create-user> [flags]")
}

func runUnlock(ctx context.Context, accounts *services.AccountService, reader *bufio.Reader) error {
	username, err := admincli.GetSimpleText(reader, "Username to unlock", os.Stdout)
	if err != nil {
		return err
	}
	if err := accounts.Unlock(ctx, username); err != nil {
		return err
	}
	fmt.Printf("account %q unlocked\n", username)
	return nil
}

func runCreateUser(ctx context.Context, accounts *services.AccountService, reader *bufio.Reader) error {
	firstName, err := admincli.GetSimpleText(reader, "First name", os.Stdout)
	if err != nil {
		return err
	}
	lastName, err := admincli.GetSimpleText(reader, "Last name", os.Stdout)
	if err != nil {
		return err
	}
	username, err := admincli.GetSimpleText(reader, "Username", os.Stdout)
	if err != nil {
		return err
	}
	email, err := admincli.GetSimpleText(reader, "Email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := admincli.GetPassword(os.Stdout, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := admincli.GetPassword(os.Stdout, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}

	acc, err := accounts.Register(ctx, services.RegisterInput{
		FirstName: firstName,
		LastName:  lastName,
		Username:  username,
		Email:     email,
		Password:  string(password),
	})
	if err != nil {
		return err
	}

	fmt.Printf("created user %s (%s)\n", acc.Username, acc.UserID)
	return nil
}
