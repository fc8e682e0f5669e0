package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/debtboard/internal/api"
	"github.com/jask/debtboard/internal/config"
	"github.com/jask/debtboard/internal/database"
	"github.com/jask/debtboard/internal/database/repository"
	"github.com/jask/debtboard/internal/logging"
	"github.com/jask/debtboard/internal/query"
	"github.com/jask/debtboard/internal/secrets"
	"github.com/jask/debtboard/internal/service"
	"github.com/jask/debtboard/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "set-token":
			if err := setToken(cfg.API.BaseURL); err != nil {
				log.Fatalf("set-token: %v", err)
			}
			fmt.Println("token saved for", cfg.API.BaseURL)
			return
		case "clear-token":
			if err := secrets.DeleteToken(cfg.API.BaseURL); err != nil {
				log.Fatalf("clear-token: %v", err)
			}
			fmt.Println("token removed for", cfg.API.BaseURL)
			return
		}
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closer.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	journal := repository.NewPaymentAttemptRepo(db)
	maintenance := &service.MaintenanceService{Journal: journal, Retention: cfg.Database.Retention}
	if n, err := maintenance.PruneJournal(ctx); err != nil {
		logger.WithError(err).Warn("prune journal")
	} else if n > 0 {
		logger.WithField("rows", n).Info("pruned payment journal")
	}

	client, err := api.New(api.Options{
		BaseURL: cfg.API.BaseURL,
		Token:   resolveToken(cfg),
		Timeout: cfg.API.Timeout,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	cache := query.New(query.Options{
		Retries: cfg.API.Retries,
		Backoff: 500 * time.Millisecond,
		Logger:  logger.WithField("component", "query"),
	})
	cache.Register(query.KeyCustomers, func(ctx context.Context) (any, error) {
		return client.ListCustomers(ctx)
	})
	cache.Register(query.KeyTransactions, func(ctx context.Context) (any, error) {
		return client.ListTransactions(ctx)
	})

	payments := &service.PaymentService{
		Client:       client,
		Journal:      journal,
		AllowOverpay: cfg.Payments.AllowOverpay,
		Log:          logger.WithField("component", "payments"),
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = config.DataDir()
	}
	export := &service.ExportService{Dir: wd}

	logger.WithField("base_url", cfg.API.BaseURL).Info("starting debtboard")
	p := tea.NewProgram(tui.New(ctx, cfg, cache,
		tui.Services{Payments: payments, Export: export, Journal: journal},
		logger.WithField("component", "tui"),
	), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// resolveToken prefers the configured token, then the stored one.
func resolveToken(cfg config.Config) string {
	if t := strings.TrimSpace(cfg.API.Token); t != "" {
		return t
	}
	if t, err := secrets.FetchToken(cfg.API.BaseURL); err == nil {
		return t
	}
	return ""
}

func setToken(baseURL string) error {
	fmt.Fprint(os.Stderr, "API token: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return secrets.StoreToken(baseURL, line)
}
