package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spark-fund/backend/internal/config"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/db"
	"github.com/spark-fund/backend/internal/events"
	"github.com/spark-fund/backend/internal/metrics"
	"github.com/spark-fund/backend/internal/repositories"
	"github.com/spark-fund/backend/internal/services"
	tonx "github.com/spark-fund/backend/internal/ton"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"go.uber.org/zap"
)

const (
	redisCursorLT   = "ton-indexer:cursor:lt"
	redisCursorHash = "ton-indexer:cursor:hash"
	redisProcessed  = "ton-indexer:tx:"
	processedTTL    = 7 * 24 * time.Hour
	txBatchSize     = 100
)

type indexer struct {
	api      ton.APIClientWrapped
	wallet   *address.Address
	accounts *services.AccountService
	rdb      *redis.Client
	log      *zap.Logger
}

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TONHotWalletAddress == "" {
		log.Fatal("TON_HOT_WALLET_ADDRESS is required")
	}

	hotWallet, err := address.ParseAddr(cfg.TONHotWalletAddress)
	if err != nil {
		log.Fatal("invalid TON_HOT_WALLET_ADDRESS", zap.String("addr", cfg.TONHotWalletAddress), zap.Error(err))
	}

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	engine := crowdfund.NewEngine(repositories.NewStore(pool))
	accountService := services.NewAccountService(
		engine,
		repositories.NewAccountRepo(pool),
		repositories.NewAuditRepo(pool),
		events.NewRedisPublisher(rdb, log),
		metrics.Crowdfund(),
		log,
	)

	tonAPI, err := connectToTON(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to TON network", zap.Error(err))
	}

	ix := &indexer{api: tonAPI, wallet: hotWallet, accounts: accountService, rdb: rdb, log: log}

	log.Info("TON indexer started",
		zap.String("hot_wallet", hotWallet.String()),
		zap.String("network", cfg.TONNetwork),
		zap.Duration("poll_interval", cfg.IndexerPollInterval),
	)

	ix.initCursor(ctx)

	ticker := time.NewTicker(cfg.IndexerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ix.pollAndProcess(ctx); err != nil && ctx.Err() == nil {
				log.Error("poll cycle failed", zap.Error(err))
			}
		case <-ctx.Done():
			log.Info("shutting down TON indexer")
			return
		}
	}
}

// connectToTON establishes a connection to the TON network.
// If LITE_SERVER_HOST + LITE_SERVER_KEY are set, connects to a specific lite server.
// Otherwise, auto-discovers lite servers from the global TON config based on TON_NETWORK.
func connectToTON(ctx context.Context, cfg *config.Config, log *zap.Logger) (ton.APIClientWrapped, error) {
	client := liteclient.NewConnectionPool()

	if cfg.LiteServerHost != "" && cfg.LiteServerKey != "" {
		addr := fmt.Sprintf("%s:%d", cfg.LiteServerHost, cfg.LiteServerPort)
		log.Info("connecting to lite server", zap.String("addr", addr))
		if err := client.AddConnection(ctx, addr, cfg.LiteServerKey); err != nil {
			return nil, fmt.Errorf("connect to lite server %s: %w", addr, err)
		}
	} else {
		configURL := "https://ton.org/testnet-global.config.json"
		if strings.ToLower(cfg.TONNetwork) == "mainnet" {
			configURL = "https://ton.org/global.config.json"
		}
		log.Info("connecting via global config", zap.String("url", configURL), zap.String("network", cfg.TONNetwork))
		if err := client.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
			return nil, fmt.Errorf("connect via config %s: %w", configURL, err)
		}
	}

	proofPolicy := ton.ProofCheckPolicyFast
	if strings.ToLower(cfg.TONNetwork) == "mainnet" {
		proofPolicy = ton.ProofCheckPolicySecure
	}

	return ton.NewAPIClient(client, proofPolicy).WithRetry(), nil
}

// initCursor stores the wallet's current LastTxLT on first run so only
// deposits arriving after startup are credited.
func (ix *indexer) initCursor(ctx context.Context) {
	existing, _ := ix.rdb.Get(ctx, redisCursorLT).Result()
	if existing != "" {
		ix.log.Info("resuming from saved cursor", zap.String("lt", existing))
		return
	}

	block, err := ix.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		ix.log.Warn("failed to get master block for cursor init", zap.Error(err))
		ix.rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}

	account, err := ix.api.GetAccount(ctx, block, ix.wallet)
	if err != nil {
		ix.log.Warn("failed to get account for cursor init", zap.Error(err))
		ix.rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}

	if account == nil || !account.IsActive || account.LastTxLT == 0 {
		ix.log.Info("hot wallet not active yet, starting from LT=0")
		ix.rdb.Set(ctx, redisCursorLT, "0", 0)
		return
	}

	ix.saveCursor(ctx, account.LastTxLT, account.LastTxHash)
	ix.log.Info("cursor initialized at current account state",
		zap.Uint64("lt", account.LastTxLT),
		zap.String("hash", hex.EncodeToString(account.LastTxHash)),
	)
}

func (ix *indexer) loadCursorLT(ctx context.Context) uint64 {
	val, err := ix.rdb.Get(ctx, redisCursorLT).Result()
	if err != nil || val == "" {
		return 0
	}
	lt, _ := strconv.ParseUint(val, 10, 64)
	return lt
}

func (ix *indexer) saveCursor(ctx context.Context, lt uint64, hash []byte) {
	ix.rdb.Set(ctx, redisCursorLT, strconv.FormatUint(lt, 10), 0)
	ix.rdb.Set(ctx, redisCursorHash, hex.EncodeToString(hash), 0)
}

// pollAndProcess credits every new inbound transfer and advances the cursor.
// The cursor only moves when all transfers of the batch were handled, so a
// database outage is retried on the next tick.
func (ix *indexer) pollAndProcess(ctx context.Context) error {
	cursorLT := ix.loadCursorLT(ctx)

	block, err := ix.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return fmt.Errorf("get master block: %w", err)
	}

	account, err := ix.api.GetAccount(ctx, block, ix.wallet)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	if account == nil || !account.IsActive || account.LastTxLT <= cursorLT {
		return nil
	}

	newTxs, err := ix.fetchNewTransactions(ctx, account, cursorLT)
	if err != nil {
		return fmt.Errorf("fetch transactions: %w", err)
	}

	if len(newTxs) > 0 {
		ix.log.Info("found new transactions", zap.Int("count", len(newTxs)))
	}
	for _, tx := range newTxs {
		if err := ix.processIncomingTx(ctx, tx); err != nil {
			return fmt.Errorf("process tx %d: %w", tx.LT, err)
		}
	}

	ix.saveCursor(ctx, account.LastTxLT, account.LastTxHash)
	return nil
}

// fetchNewTransactions retrieves all transactions with LT > cursorLT.
// ListTransactions returns results oldest-first; we paginate backwards
// until we reach the cursor, then return in chronological order.
func (ix *indexer) fetchNewTransactions(ctx context.Context, account *tlb.Account, cursorLT uint64) ([]*tlb.Transaction, error) {
	var allTxs []*tlb.Transaction

	lt := account.LastTxLT
	hash := account.LastTxHash

	for {
		txs, err := ix.api.ListTransactions(ctx, ix.wallet, uint32(txBatchSize), lt, hash)
		if err != nil {
			return nil, fmt.Errorf("list transactions (lt=%d): %w", lt, err)
		}
		if len(txs) == 0 {
			break
		}

		reachedCursor := false
		for _, tx := range txs {
			if tx.LT <= cursorLT {
				reachedCursor = true
				continue
			}
			allTxs = append(allTxs, tx)
		}

		if reachedCursor || len(txs) < txBatchSize {
			break
		}

		oldest := txs[0]
		if oldest.PrevTxLT == 0 {
			break
		}
		lt = oldest.PrevTxLT
		hash = oldest.PrevTxHash
	}

	sort.Slice(allTxs, func(i, j int) bool {
		return allTxs[i].LT < allTxs[j].LT
	})

	return allTxs, nil
}

// processIncomingTx credits a "deposit:<account-uuid>" transfer. Transfers
// that cannot be routed are recorded as skipped and never retried.
func (ix *indexer) processIncomingTx(ctx context.Context, tx *tlb.Transaction) error {
	tr, ok := tonx.ParseIncoming(tx)
	if !ok {
		return nil
	}

	txKey := fmt.Sprintf("%s%d", redisProcessed, tr.LT)
	if ix.rdb.Exists(ctx, txKey).Val() > 0 {
		return nil
	}

	accountID, ok := services.ParseDepositMemo(tr.Comment)
	if !ok {
		ix.log.Debug("transfer without deposit memo, skipping",
			zap.Uint64("lt", tr.LT),
			zap.String("from", tr.From),
			zap.String("comment", tr.Comment),
		)
		ix.rdb.Set(ctx, txKey, "no_memo", processedTTL)
		return nil
	}

	ref := strconv.FormatUint(tr.LT, 10)
	_, err := ix.accounts.Deposit(ctx, accountID, tr.Amount, ref, tr.From)
	switch {
	case err == nil:
		ix.rdb.Set(ctx, txKey, "credited:"+accountID.String(), processedTTL)
		ix.log.Info("deposit credited",
			zap.String("account_id", accountID.String()),
			zap.Uint64("lt", tr.LT),
			zap.String("amount", tonx.FormatNano(tr.Amount)),
			zap.String("from", tr.From),
		)
		return nil
	case errors.Is(err, crowdfund.ErrDuplicateExternalRef):
		ix.rdb.Set(ctx, txKey, "duplicate", processedTTL)
		return nil
	case errors.Is(err, crowdfund.ErrAccountNotFound):
		ix.log.Warn("deposit for unknown account",
			zap.String("account_id", accountID.String()),
			zap.Uint64("lt", tr.LT),
			zap.String("from", tr.From),
		)
		ix.rdb.Set(ctx, txKey, "no_account", processedTTL)
		return nil
	case crowdfund.Code(err) != "":
		ix.log.Warn("deposit rejected", zap.Uint64("lt", tr.LT), zap.Error(err))
		ix.rdb.Set(ctx, txKey, "rejected:"+crowdfund.Code(err), processedTTL)
		return nil
	default:
		return err
	}
}
