package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"example.com/ecopulse/backend/internal/config"
	"example.com/ecopulse/backend/internal/database"
	"example.com/ecopulse/backend/internal/progression"
	"example.com/ecopulse/backend/internal/store"
)

const defaultDBPath = "ecopulse.db"

// offlinePlayer — пространство ключей локальной игры.
var offlinePlayer = uuid.Nil

type app struct {
	dbPath   string
	player   string
	backend  store.Backend
	registry *progression.Registry
	playerID uuid.UUID
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ecoctl",
		Short: "Manage EcoPulse progression from the terminal",
		Long: `Manage EcoPulse coins and ranks without the web client.

By default progress lives in a local SQLite file (--db).
With --player the command works on a server player's namespace in Postgres,
configured through the same DB_* environment variables as the server.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.dbPath, "db", defaultDBPath, "path to the local SQLite progress file")
	root.PersistentFlags().StringVar(&a.player, "player", "", "server player id (uses Postgres)")
	root.PersistentFlags().Bool("verbose", false, "log storage warnings to stderr")

	root.AddCommand(
		newLevelsCmd(a),
		newStatusCmd(a),
		newEarnCmd(a),
		newLevelUpCmd(a),
		newModeCmd(a),
		newResetCmd(a),
	)

	return root
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbCfg, economyCfg, err := config.LoadOffline()
	if err != nil {
		return err
	}

	policy, err := progression.LoadPolicy(economyCfg.PolicyFile)
	if err != nil {
		return err
	}
	if economyCfg.PolicyFile == "" {
		policy.StartingBalance = economyCfg.StartingBalance
		policy.LevelCount = economyCfg.LevelCount
	}
	tables, err := progression.GenerateTables(policy)
	if err != nil {
		return err
	}

	if a.player != "" {
		playerID, err := uuid.Parse(a.player)
		if err != nil {
			return fmt.Errorf("invalid --player: %w", err)
		}
		pool, err := database.Open(ctx, dbCfg)
		if err != nil {
			return err
		}
		a.backend = &pooledBackend{Postgres: store.NewPostgres(pool), close: pool.Close}
		a.playerID = playerID
	} else {
		backend, err := store.OpenSQLite(ctx, a.dbPath)
		if err != nil {
			return err
		}
		a.backend = backend
		a.playerID = offlinePlayer
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}
	a.registry = progression.NewRegistry(a.backend, policy, tables, logger)
	return nil
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Close()
	a.backend = nil
	return err
}

func (a *app) engine(ctx context.Context) (*progression.Engine, error) {
	return a.registry.For(ctx, a.playerID)
}

// pooledBackend закрывает пул соединений вместе с хранилищем.
type pooledBackend struct {
	*store.Postgres
	close func()
}

func (p *pooledBackend) Close() error {
	p.close()
	return nil
}
