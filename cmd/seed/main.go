package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/config"
	"github.com/dakghar-dev/postal-portal/backend/internal/repository"
	"github.com/dakghar-dev/postal-portal/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var days int
	var financialYear string

	flag.IntVar(&op, "op", 0, "operation (1: seed offices, 2: seed users, 3: seed metrics history, 4: seed targets)")
	flag.IntVar(&n, "n", 10, "number of users to insert")
	flag.IntVar(&days, "days", 30, "days of metrics history to backfill")
	flag.StringVar(&financialYear, "fy", "2026-27", "financial year for targets")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	switch op {
	case 0:
		slog.Error("no operation given")
	case 1:
		seed.SeedOffices(repo)
	case 2:
		if n <= 0 {
			slog.Error("user count must be positive")
			return
		}
		officeIDs, err := allOfficeIDs(repo)
		if err != nil {
			return
		}
		seed.SeedUsers(repo, n, cfg.Seed.User.Password, cfg.Email.UserDomain, officeIDs)
	case 3:
		if days <= 0 {
			slog.Error("days must be positive")
			return
		}
		officeIDs, err := allOfficeIDs(repo)
		if err != nil {
			return
		}
		admin, err := repo.GetUserByEmail(cfg.InitialAdmin.Email)
		if err != nil {
			slog.Error("initial admin not found, run the api once first", "error", err)
			return
		}
		seed.SeedMetricsHistory(repo, officeIDs, days, admin.ID)
	case 4:
		officeIDs, err := allOfficeIDs(repo)
		if err != nil {
			return
		}
		admin, err := repo.GetUserByEmail(cfg.InitialAdmin.Email)
		if err != nil {
			slog.Error("initial admin not found, run the api once first", "error", err)
			return
		}
		seed.SeedTargets(repo, officeIDs, financialYear, admin.ID)
	default:
		slog.Error("unknown operation")
	}
}

func allOfficeIDs(repo *repository.Repository) ([]int64, error) {
	offices, err := repo.GetAllOffices()
	if err != nil {
		slog.Error("failed to list offices", "error", err)
		return nil, err
	}
	if len(offices) == 0 {
		slog.Error("no offices found, seed offices first (-op 1)")
		return nil, sql.ErrNoRows
	}

	ids := make([]int64, 0, len(offices))
	for _, o := range offices {
		ids = append(ids, o.ID)
	}
	return ids, nil
}
