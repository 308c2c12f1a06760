package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/HTTPayer/polkax402/config"
	"github.com/HTTPayer/polkax402/core/genesis"
	"github.com/HTTPayer/polkax402/core/state"
	"github.com/HTTPayer/polkax402/native/payments"
	"github.com/HTTPayer/polkax402/native/token"
	"github.com/HTTPayer/polkax402/observability/logging"
	"github.com/HTTPayer/polkax402/rpc"
	"github.com/HTTPayer/polkax402/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("HTTPUSD_ENV"))
	logger := logging.Setup("httpusd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", slog.String("dataDir", cfg.DataDir), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := applyGenesisIfNeeded(manager, cfg, logger); err != nil {
		logger.Error("failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	ledger := token.NewLedger()
	ledger.SetState(manager)

	engine := payments.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetLogger(logger)

	server := rpc.NewServer(ledger, engine, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func applyGenesisIfNeeded(manager *state.Manager, cfg *config.Config, logger *slog.Logger) error {
	initialized, err := manager.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}
	if strings.TrimSpace(cfg.Genesis.Owner) == "" {
		return fmt.Errorf("empty state store and no genesis owner configured")
	}
	owner, err := cfg.OwnerAccount()
	if err != nil {
		return err
	}
	supply, err := cfg.InitialSupply()
	if err != nil {
		return err
	}
	if err := genesis.Apply(manager, owner, supply, cfg.Genesis.FeeBps); err != nil {
		return err
	}
	logger.Info("genesis applied",
		slog.String("owner", owner.Hex()),
		slog.String("initialSupply", supply.String()),
		slog.Uint64("feeBps", uint64(cfg.Genesis.FeeBps)))
	return nil
}
