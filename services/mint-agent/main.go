package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/AmentiAI/solmaker-sub001/common/logger"
	"github.com/AmentiAI/solmaker-sub001/launchpad/client"
	"github.com/AmentiAI/solmaker-sub001/launchpad/guard"
	"github.com/AmentiAI/solmaker-sub001/launchpad/mint"
	"github.com/AmentiAI/solmaker-sub001/launchpad/poller"
	"github.com/AmentiAI/solmaker-sub001/launchpad/reservation"
	"github.com/AmentiAI/solmaker-sub001/launchpad/wallet"
	"github.com/AmentiAI/solmaker-sub001/pkg/chain"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Initialize("development").Fatal("Config load failed", zap.Error(err))
	}

	log := logger.Initialize(cfg.Env)
	defer log.Sync() //nolint:errcheck

	// --- Wallet ---
	var w wallet.Wallet
	switch cfg.Signer {
	case "remote":
		w = wallet.NewRemoteSigner(cfg.WalletAddress, cfg.SignerURL, log)
	default:
		kp, err := chain.NewKeypairWallet(cfg.Keypair)
		if err != nil {
			log.Fatal("Invalid wallet keypair", zap.Error(err))
		}
		w = kp
	}

	var broadcaster wallet.Broadcaster = chain.OfflineBroadcaster{}
	if cfg.RPCURL != "" {
		broadcaster = chain.NewBroadcaster(chain.NewRPC(cfg.RPCURL), log)
	} else {
		log.Warn("SOLANA_RPC_URL not set, transactions will not be sent on chain")
	}

	// --- Mounted collection view ---
	path := guard.CollectionPath(cfg.CollectionID)
	router := guard.NewRouter(path)
	scope := guard.NewScope(context.Background(), path, router)
	defer scope.Close()

	api := client.New(cfg.APIURL, cfg.CollectionID, client.WithLogger(log))

	intervals := poller.DefaultIntervals()
	intervals.InFlight = cfg.PollInFlight
	intervals.Active = cfg.PollActive
	intervals.Idle = cfg.PollIdle
	intervals.IdleMax = cfg.PollIdleMax

	live := poller.New(api, scope,
		poller.WithWallet(w.Address),
		poller.WithIntervals(intervals),
		poller.WithLogger(log),
		poller.OnChange(func(s poller.State) {
			log.Info("Collection updated",
				zap.Int("total_minted", s.Counts.TotalMinted),
				zap.Int("total_supply", s.Counts.TotalSupply),
				zap.Bool("sold_out", s.SoldOut()),
			)
		}),
	)

	inventory := reservation.New(api, scope, w, live,
		reservation.WithLogger(log),
		reservation.WithExpiryScan(cfg.ExpiryScan),
	)

	orchestrator := mint.New(api, scope, w, broadcaster, live,
		mint.WithLogger(log),
		mint.WithInventory(inventory),
		mint.WithConfirmBudget(cfg.ConfirmAttempts, cfg.ConfirmInterval),
		mint.OnStateChange(func(s mint.State) {
			log.Info("Mint state", zap.String("step", string(s.Step)), zap.String("status", s.Status))
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Leaving the page ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			log.Info("Leaving collection", zap.String("path", path))
			scope.NavigateAway()
			cancel()
		case <-ctx.Done():
		}
	}()

	if !live.Poll(ctx) {
		log.Fatal("Initial poll failed", zap.String("collection_id", cfg.CollectionID))
	}
	go live.Run(ctx)
	go inventory.WatchExpiry(ctx)

	log.Info("Mint agent started",
		zap.String("collection_id", cfg.CollectionID),
		zap.String("wallet", w.Address()),
		zap.String("mode", cfg.Mode),
	)

	var st mint.State
	switch cfg.Mode {
	case "choices":
		if err := inventory.Reload(ctx); err != nil {
			log.Fatal("Failed to load inventory", zap.Error(err))
		}
		for _, id := range cfg.ItemIDs {
			if err := inventory.Lock(ctx, id); err != nil {
				log.Warn("Could not lock ordinal", zap.String("item_id", id), zap.String("reason", inventory.Message()))
			}
		}
		st, err = orchestrator.MintChoices(ctx, inventory.LockedIDs())
	default:
		st, err = orchestrator.MintRandom(ctx, cfg.Quantity)
	}

	if err != nil {
		log.Error("Mint failed", zap.String("reason", st.Error), zap.Error(err))
		cancel()
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Mint finished",
		zap.String("signature", st.Signature),
		zap.Bool("confirmed", st.Confirmed),
		zap.Int("minted", st.Minted),
	)
}
