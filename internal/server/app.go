// Package server initializes and runs the credential server. It opens the
// database, applies migrations, loads the password policy, wires the
// services, and starts the HTTP endpoint with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/commltd/authcore/internal/logging"
	"github.com/commltd/authcore/internal/policy"
	"github.com/commltd/authcore/internal/server/config"
	"github.com/commltd/authcore/internal/server/httpapi"
	"github.com/commltd/authcore/internal/server/notify"
	"github.com/commltd/authcore/internal/server/repositories/repomanager"
	"github.com/commltd/authcore/internal/server/services"
	"github.com/sethvargo/go-retry"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config              *config.Config
	logger              logging.Logger
	db                  *sql.DB
	policy              *policy.Policy
	accountService      *services.AccountService
	verificationService *services.VerificationService
	passwordService     *services.PasswordService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	l := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(l)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	// the database container may still be coming up
	backoff := retry.WithMaxRetries(5, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	p, err := policy.LoadFile(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("policy load error: %w", err)
	}

	notifier := notify.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, cfg.SMTPTimeout)

	as := services.NewAccountService(db, rm, p, cfg)
	vs := services.NewVerificationService(db, rm, notifier, cfg)
	ps := services.NewPasswordService(db, rm, vs, p, cfg)

	return &App{
		config:              cfg,
		logger:              logger,
		db:                  db,
		policy:              p,
		accountService:      as,
		verificationService: vs,
		passwordService:     ps,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger,
		app.accountService, app.verificationService, app.passwordService, app.policy)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing db", "error", err)
	}
}
