package localKeyGenerator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/vsc-eco/vsc-client-go/internal/keyGenerator"
	"github.com/vsc-eco/vsc-client-go/pkg/did"
	"github.com/vsc-eco/vsc-client-go/pkg/evmAccount"
	"go.uber.org/zap"
)

type keyEntry struct {
	account   *evmAccount.PrivateKeyAccount
	secret    string
	keyName   string
	aliasName string
}

// LocalKeyGenerator creates keys in process memory. Secrets are returned to
// the caller, who is responsible for storing them.
type LocalKeyGenerator struct {
	logger   *zap.Logger
	keyStore map[string]*keyEntry
	mu       sync.RWMutex
}

var _ keyGenerator.IKeyGenerator = (*LocalKeyGenerator)(nil)

func NewLocalKeyGenerator(logger *zap.Logger) *LocalKeyGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalKeyGenerator{
		logger:   logger,
		keyStore: make(map[string]*keyEntry),
	}
}

func (l *LocalKeyGenerator) GenerateEvmKey(ctx context.Context, keyName string, aliasName string) (*keyGenerator.GeneratedKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
	}
	account := evmAccount.NewPrivateKeyAccountFromKey(privateKey)
	secret := hexutil.Encode(crypto.FromECDSA(privateKey))
	keyId := fmt.Sprintf("local-key-%s", uuid.New().String())

	l.mu.Lock()
	l.keyStore[keyId] = &keyEntry{
		account:   account,
		secret:    secret,
		keyName:   keyName,
		aliasName: aliasName,
	}
	l.mu.Unlock()

	l.logger.Info("Generated local EVM key",
		zap.String("keyName", keyName),
		zap.String("aliasName", aliasName),
		zap.String("keyId", keyId),
		zap.String("address", account.Address().Hex()),
	)
	return l.GetEvmKeyById(ctx, keyId)
}

func (l *LocalKeyGenerator) GetEvmKeyById(_ context.Context, keyId string) (*keyGenerator.GeneratedKey, error) {
	l.mu.RLock()
	entry, exists := l.keyStore[keyId]
	l.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", keyGenerator.ErrKeyNotFound, keyId)
	}
	return keyGenerator.NewEvmKey(keyId, entry.secret, entry.account.Address()), nil
}

// Account returns a signer for a key created by this generator.
func (l *LocalKeyGenerator) Account(keyId string) (evmAccount.IEvmAccount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, exists := l.keyStore[keyId]
	if !exists {
		return nil, fmt.Errorf("%w: %s", keyGenerator.ErrKeyNotFound, keyId)
	}
	return entry.account, nil
}

// GenerateDIDKey creates a random Ed25519 seed and its did:key.
func (l *LocalKeyGenerator) GenerateDIDKey(_ context.Context) (*keyGenerator.GeneratedKey, error) {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to read random seed: %w", err)
	}
	keyDID, err := did.NewKeyDIDFromSeed(seed)
	if err != nil {
		return nil, err
	}
	l.logger.Info("Generated did:key identity", zap.String("did", keyDID.ID()))
	return &keyGenerator.GeneratedKey{
		KeyId:  keyDID.ID(),
		Secret: hex.EncodeToString(seed),
		DID:    keyDID.ID(),
	}, nil
}
