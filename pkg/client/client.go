// Package client is the entry point for broadcasting VSC transactions: it
// owns the login session, the nonce cache and the node connection.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/vsc-eco/vsc-client-go/pkg/clients/graphql"
	"github.com/vsc-eco/vsc-client-go/pkg/config"
	"github.com/vsc-eco/vsc-client-go/pkg/did"
	"github.com/vsc-eco/vsc-client-go/pkg/evmAccount"
	"github.com/vsc-eco/vsc-client-go/pkg/hive"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence/badger"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence/memory"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence/redis"
	"github.com/vsc-eco/vsc-client-go/pkg/session"
	"github.com/vsc-eco/vsc-client-go/pkg/transactionSigner"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"go.uber.org/zap"
)

// ClientConfig holds the configuration and injectable dependencies of a Client.
type ClientConfig struct {
	Config *config.ClientConfig
	Logger *zap.Logger

	// DelegatedSigner is required for hive logins.
	DelegatedSigner hive.IDelegatedSigner

	// NonceStore replaces the backend selected by Config.NonceCache.
	NonceStore persistence.INoncePersistence
	// GraphQL replaces the node client built from Config.
	GraphQL    graphql.IGraphQLClient
	HttpClient *http.Client
}

// BroadcastResult identifies a submitted transaction.
type BroadcastResult struct {
	Id string
	// Tx and Sig are empty when a delegated signer submitted the transaction.
	Tx  string
	Sig string
}

type Client struct {
	config    *config.ClientConfig
	logger    *zap.Logger
	gql       graphql.IGraphQLClient
	store     persistence.INoncePersistence
	delegated hive.IDelegatedSigner

	mu      sync.RWMutex
	session session.Session

	watchAccountOnce sync.Once
}

// NewClient validates config and connects the nonce cache.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Config == nil {
		return nil, fmt.Errorf("client config is required")
	}
	if err := cfg.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gql := cfg.GraphQL
	if gql == nil {
		var err error
		gql, err = graphql.NewClient(&graphql.Config{
			Endpoint:          cfg.Config.GraphQLEndpoint(),
			HttpClient:        cfg.HttpClient,
			Logger:            logger,
			RequestsPerSecond: cfg.Config.RequestsPerSecond,
			Timeout:           cfg.Config.RequestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create graphql client: %w", err)
		}
	}

	store := cfg.NonceStore
	if store == nil {
		var err error
		store, err = newNonceStore(&cfg.Config.NonceCache, logger)
		if err != nil {
			return nil, err
		}
	}

	logger.Sugar().Infow("VSC client created",
		"endpoint", cfg.Config.GraphQLEndpoint(),
		"nonceCache", cfg.Config.NonceCache.Type,
	)

	return &Client{
		config:    cfg.Config,
		logger:    logger,
		gql:       gql,
		store:     store,
		delegated: cfg.DelegatedSigner,
	}, nil
}

func newNonceStore(cfg *config.NonceCacheConfig, logger *zap.Logger) (persistence.INoncePersistence, error) {
	switch cfg.Type {
	case "", config.NonceCacheType_Memory:
		return memory.NewMemoryPersistence(), nil
	case config.NonceCacheType_Redis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis nonce cache requires redis config")
		}
		store, err := redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       cfg.Redis.TTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis nonce cache: %w", err)
		}
		return store, nil
	case config.NonceCacheType_Badger:
		store, err := badger.NewBadgerPersistence(cfg.BadgerPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger nonce cache: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown nonce cache type %q", cfg.Type)
	}
}

// Session returns the active session, or nil before any login.
func (c *Client) Session() session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) LoginMode() types.LoginMode {
	return session.ModeOf(c.Session())
}

func (c *Client) setSession(s session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

// LoginWithDID switches to offchain mode, signing as d.
func (c *Client) LoginWithDID(_ context.Context, d did.IDID) error {
	if d == nil || !d.Authenticated() {
		return types.ErrSessionNotInitialized
	}
	c.setSession(session.NewOffchainSession(d, c.store))
	c.logger.Sugar().Infow("Logged in with DID", "did", d.ID())
	return nil
}

// LoginWithEVM switches to evm mode, signing with account.
func (c *Client) LoginWithEVM(_ context.Context, account evmAccount.IEvmAccount) error {
	if account == nil {
		return types.ErrSessionNotInitialized
	}
	s := session.NewEvmSession(account, c.store)
	c.setSession(s)
	c.logger.Sugar().Infow("Logged in with EVM account",
		"address", account.Address().Hex(),
		"did", s.RequiredAuth(),
	)
	return nil
}

// LoginWithHive asks the delegated signer to log username in through provider.
func (c *Client) LoginWithHive(ctx context.Context, provider hive.Provider, username string, opts *hive.LoginOptions) error {
	if c.delegated == nil {
		return types.ErrSessionNotInitialized
	}
	if username == "" {
		return fmt.Errorf("%w: username is required", types.ErrLoginFailed)
	}
	opts = opts.WithDefaults()
	if len(opts.HiveApi) == 0 {
		opts.HiveApi = c.config.HiveApi
	}

	result := c.delegated.Login(ctx, provider, username, opts)
	if !result.Success {
		return fmt.Errorf("%w: %s", types.ErrLoginFailed, result.Error)
	}

	c.watchAccountOnce.Do(func() {
		c.delegated.OnAccountChanged(c.handleAccountChanged)
	})
	c.setSession(session.NewHiveSession(username, c.delegated))
	c.logger.Sugar().Infow("Logged in with Hive", "username", username, "provider", provider)
	return nil
}

// handleAccountChanged follows account switches made inside the delegated signer.
func (c *Client) handleAccountChanged(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.session.(*session.HiveSession); !ok {
		return
	}
	if username == "" {
		c.session = nil
		c.logger.Sugar().Infow("Delegated signer logged out")
		return
	}
	c.session = session.NewHiveSession(username, c.delegated)
	c.logger.Sugar().Infow("Delegated signer switched account", "username", username)
}

// Logout ends the session. Cached nonces are kept.
func (c *Client) Logout(ctx context.Context) error {
	s := c.Session()
	c.setSession(nil)
	if _, ok := s.(*session.HiveSession); ok && c.delegated != nil {
		if err := c.delegated.Logout(ctx); err != nil {
			return fmt.Errorf("failed to log out of delegated signer: %w", err)
		}
	}
	return nil
}

func (c *Client) IsDelegatedLoggedIn() bool {
	return c.delegated != nil && c.delegated.IsLoggedIn()
}

func (c *Client) DelegatedUser() string {
	if c.delegated == nil {
		return ""
	}
	return c.delegated.CurrentUser()
}

func (c *Client) OnDelegatedAccountChanged(callback func(username string)) {
	if c.delegated != nil {
		c.delegated.OnAccountChanged(callback)
	}
}

func (c *Client) nonceTracker() (*session.NonceTracker, error) {
	switch s := c.Session().(type) {
	case *session.OffchainSession:
		return s.Nonce, nil
	case *session.EvmSession:
		return s.Nonce, nil
	case *session.HiveSession:
		return nil, fmt.Errorf("login mode %s does not use nonces", s.Mode())
	default:
		return nil, types.ErrSessionNotInitialized
	}
}

// GetNonce returns the nonce the next broadcast will carry, fetching it from
// the node when nothing is cached.
func (c *Client) GetNonce(ctx context.Context) (uint64, error) {
	tracker, err := c.nonceTracker()
	if err != nil {
		return 0, err
	}
	nonce, _, err := tracker.Current(ctx, c.gql.GetAccountNonce)
	return nonce, err
}

// ClearNonce drops the cached nonce so the next broadcast refetches it from
// the node. Use it after a rejected submission.
func (c *Client) ClearNonce(ctx context.Context) error {
	tracker, err := c.nonceTracker()
	if errors.Is(err, types.ErrSessionNotInitialized) {
		return err
	}
	if err != nil {
		return nil
	}
	return tracker.Clear(ctx)
}

// Broadcast signs intent for the active session and submits it. Broadcasts of
// one session run one at a time.
func (c *Client) Broadcast(ctx context.Context, intent *types.TransactionIntent) (*BroadcastResult, error) {
	broadcastId := uuid.NewString()
	logger := c.logger.With(zap.String("broadcast_id", broadcastId))

	res, err := c.broadcast(ctx, intent, logger)
	if err != nil {
		if !types.IsKnown(err) {
			err = &types.BroadcastError{Cause: err}
		}
		logger.Sugar().Warnw("Broadcast failed", "error", err)
		return nil, err
	}
	logger.Sugar().Infow("Broadcast succeeded", "id", res.Id)
	return res, nil
}

func (c *Client) broadcast(ctx context.Context, intent *types.TransactionIntent, logger *zap.Logger) (*BroadcastResult, error) {
	s := c.Session()
	if s == nil {
		return nil, types.ErrSessionNotInitialized
	}
	if intent == nil {
		return nil, types.ErrNoIntentSet
	}

	signer, err := transactionSigner.NewTransactionSigner(s, &transactionSigner.SignerConfig{
		FetchNonce: c.gql.GetAccountNonce,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	if err := s.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.Release()

	logger.Sugar().Debugw("Signing transaction",
		"mode", s.Mode(),
		"identity", s.Identity(),
		"contract_id", intent.ContractID,
		"action", intent.Action,
	)
	signed, err := signer.SignTransaction(ctx, intent)
	if err != nil {
		return nil, err
	}
	if signed.Submitted {
		return &BroadcastResult{Id: signed.SubmittedID}, nil
	}

	submitted, err := c.gql.SubmitTransaction(ctx, signed.Tx, signed.Sig)
	if err != nil {
		return nil, err
	}
	return &BroadcastResult{
		Id:  submitted.Id,
		Tx:  signed.Tx,
		Sig: signed.Sig,
	}, nil
}

// Close releases the nonce cache.
func (c *Client) Close() error {
	return c.store.Close()
}
