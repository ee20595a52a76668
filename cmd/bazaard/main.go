package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"bazaar/config"
	"bazaar/core"
	"bazaar/crypto"
	nativecommon "bazaar/native/common"
	"bazaar/observability/logging"
	"bazaar/observability/otel"
	"bazaar/rpc"
	"bazaar/storage"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the node configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "err", err)
		os.Exit(1)
	}

	logOpts := []logging.Option{}
	if cfg.LogFile != "" {
		logOpts = append(logOpts, logging.WithFile(cfg.LogFile))
	}
	logger := logging.Setup("bazaard", cfg.LogEnv, logOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: "bazaard",
			Environment: cfg.LogEnv,
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    cfg.OTLPInsecure,
		})
		if err != nil {
			logger.Error("failed to initialise telemetry", "err", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown failed", "err", err)
			}
		}()
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "dir", cfg.DataDir, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.PolicyFile == "" {
		logger.Error("policy file required")
		os.Exit(1)
	}
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Error("failed to load policy", "path", cfg.PolicyFile, "err", err)
		os.Exit(1)
	}
	feePolicy, err := policy.FeePolicy()
	if err != nil {
		logger.Error("invalid fee policy", "err", err)
		os.Exit(1)
	}

	node := core.NewNode(db, feePolicy, nativecommon.NewPauseSet(policy.Paused))

	if cfg.GenesisFile != "" {
		genesis, err := config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			logger.Error("failed to load genesis", "path", cfg.GenesisFile, "err", err)
			os.Exit(1)
		}
		if err := applyGenesis(node, genesis); err != nil {
			logger.Error("failed to apply genesis", "err", err)
			os.Exit(1)
		}
	}

	server := rpc.NewServer(node, os.Getenv("BAZAAR_RPC_TOKEN"), logger)
	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           otelhttp.NewHandler(server.Router(), "bazaard.rpc"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting JSON-RPC server",
			slog.String("addr", cfg.RPCAddress),
			slog.String("network", cfg.NetworkName))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("rpc server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("rpc shutdown failed", "err", err)
	}
}

func applyGenesis(node *core.Node, genesis *config.Genesis) error {
	accounts := make(map[[20]byte]*big.Int, len(genesis.Accounts))
	for _, acc := range genesis.Accounts {
		addr, err := crypto.DecodeAddress(acc.Address)
		if err != nil {
			return err
		}
		balance, ok := new(big.Int).SetString(acc.Balance, 10)
		if !ok {
			return errors.New("invalid genesis balance")
		}
		accounts[addr.Bytes()] = balance
	}
	assets := make([]core.GenesisAsset, 0, len(genesis.Assets))
	for _, asset := range genesis.Assets {
		creator, err := crypto.DecodeAddress(asset.Creator)
		if err != nil {
			return err
		}
		schedule, err := asset.Schedule()
		if err != nil {
			return err
		}
		assets = append(assets, core.GenesisAsset{
			Creator:  creator.Bytes(),
			URI:      asset.URI,
			Schedule: schedule,
		})
	}
	return node.ApplyGenesis(accounts, assets)
}
