package transactionSigner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vsc-eco/vsc-client-go/pkg/codec"
	"github.com/vsc-eco/vsc-client-go/pkg/did"
	"github.com/vsc-eco/vsc-client-go/pkg/eip712"
	"github.com/vsc-eco/vsc-client-go/pkg/evmAccount"
	"github.com/vsc-eco/vsc-client-go/pkg/hive"
	"github.com/vsc-eco/vsc-client-go/pkg/hive/mocks"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence/memory"
	"github.com/vsc-eco/vsc-client-go/pkg/session"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
	"go.uber.org/zap/zaptest"
)

const devKeyHex = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testIntent() *types.TransactionIntent {
	return types.NewCallContractIntent("vs41q9c3yg", "transfer", value.Object{
		{Key: "to", Value: value.String("hive:bob")},
		{Key: "amount", Value: value.Int(100)},
	})
}

type countingFetcher struct {
	nonce uint64
	calls atomic.Int32
	err   error
}

func (c *countingFetcher) fetch(_ context.Context, _ string) (uint64, error) {
	c.calls.Add(1)
	return c.nonce, c.err
}

func decodeEnvelope(t *testing.T, tx string) *types.Envelope {
	t.Helper()
	block, err := codec.TextToBytes(tx)
	require.NoError(t, err)
	v, err := codec.Decode(block)
	require.NoError(t, err)
	env, err := types.EnvelopeFromValue(v)
	require.NoError(t, err)
	return env
}

func decodeBundle(t *testing.T, sig string) *types.SignatureBundle {
	t.Helper()
	block, err := codec.TextToBytes(sig)
	require.NoError(t, err)
	v, err := codec.Decode(block)
	require.NoError(t, err)
	bundle, err := types.SignatureBundleFromValue(v)
	require.NoError(t, err)
	return bundle
}

func TestNewTransactionSigner(t *testing.T) {
	store := memory.NewMemoryPersistence()
	keyDID, err := did.NewKeyDIDFromSeed(make([]byte, 32))
	require.NoError(t, err)
	fetcher := &countingFetcher{}

	_, err = NewTransactionSigner(nil, nil)
	assert.ErrorIs(t, err, types.ErrSessionNotInitialized)

	s, err := NewTransactionSigner(session.NewHiveSession("alice", nil), nil)
	require.NoError(t, err)
	assert.IsType(t, &HiveSigner{}, s)

	_, err = NewTransactionSigner(session.NewOffchainSession(keyDID, store), &SignerConfig{})
	assert.Error(t, err)

	s, err = NewTransactionSigner(session.NewOffchainSession(keyDID, store), &SignerConfig{FetchNonce: fetcher.fetch})
	require.NoError(t, err)
	assert.IsType(t, &OffchainSigner{}, s)
}

func TestHiveSigner(t *testing.T) {
	ctx := context.Background()

	t.Run("without delegated signer", func(t *testing.T) {
		s, err := NewTransactionSigner(session.NewHiveSession("alice", nil), nil)
		require.NoError(t, err)
		_, err = s.SignTransaction(ctx, testIntent())
		assert.ErrorIs(t, err, types.ErrSessionNotInitialized)
	})

	t.Run("submits through delegated signer", func(t *testing.T) {
		signer := &mocks.DelegatedSigner{}
		signer.On("SignAndSubmitJSON", mock.Anything, hive.KeyTypePosting, "vsc-tx", mock.MatchedBy(func(p interface{}) bool {
			env, ok := p.(*types.Envelope)
			return ok && env.Headers.Nonce == nil && assert.ObjectsAreEqual([]string{"alice"}, env.Headers.RequiredAuths)
		})).Return(hive.OperationResult{Success: true, Result: "hive-tx-id"}).Once()

		s, err := NewTransactionSigner(session.NewHiveSession("alice", signer), &SignerConfig{Logger: zaptest.NewLogger(t)})
		require.NoError(t, err)

		signed, err := s.SignTransaction(ctx, testIntent())
		require.NoError(t, err)
		assert.True(t, signed.Submitted)
		assert.Equal(t, "hive-tx-id", signed.SubmittedID)
		assert.Empty(t, signed.Tx)
		signer.AssertExpectations(t)
	})

	t.Run("declined", func(t *testing.T) {
		signer := &mocks.DelegatedSigner{}
		signer.On("SignAndSubmitJSON", mock.Anything, hive.KeyTypePosting, "vsc-tx", mock.Anything).
			Return(hive.OperationResult{Success: false, Error: "user cancelled"})

		s, err := NewTransactionSigner(session.NewHiveSession("alice", signer), nil)
		require.NoError(t, err)

		_, err = s.SignTransaction(ctx, testIntent())
		var signErr *types.SigningFailedError
		require.True(t, errors.As(err, &signErr))
		assert.Equal(t, "user cancelled", signErr.Reason)
	})

	t.Run("missing intent", func(t *testing.T) {
		s, err := NewTransactionSigner(session.NewHiveSession("alice", &mocks.DelegatedSigner{}), nil)
		require.NoError(t, err)
		_, err = s.SignTransaction(ctx, nil)
		assert.ErrorIs(t, err, types.ErrNoIntentSet)
	})
}

func TestOffchainSigner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryPersistence()
	keyDID, err := did.NewKeyDIDFromSeed(make([]byte, 32))
	require.NoError(t, err)
	sess := session.NewOffchainSession(keyDID, store)
	fetcher := &countingFetcher{nonce: 7}

	s, err := NewTransactionSigner(sess, &SignerConfig{FetchNonce: fetcher.fetch, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	signed, err := s.SignTransaction(ctx, testIntent())
	require.NoError(t, err)
	assert.False(t, signed.Submitted)

	env := decodeEnvelope(t, signed.Tx)
	require.NotNil(t, env.Headers.Nonce)
	assert.Equal(t, uint64(7), *env.Headers.Nonce)
	assert.Equal(t, []string{keyDID.ID()}, env.Headers.RequiredAuths)
	assert.Equal(t, types.HeaderTypeInput, env.Headers.Type)

	cached, found, err := sess.Nonce.Peek(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(8), cached)

	bundle := decodeBundle(t, signed.Sig)
	require.Len(t, bundle.Sigs, 1)
	rec, ok := bundle.Sigs[0].(types.DIDSignature)
	require.True(t, ok)
	assert.Equal(t, "EdDSA", rec.Alg)
	assert.Equal(t, keyDID.ID(), rec.Kid)

	reassembled, err := did.ReassembleJWS(signed.Tx, signed.Sig)
	require.NoError(t, err)
	require.Len(t, reassembled, 1)
	compact, err := reassembled[0].Compact(0)
	require.NoError(t, err)
	_, err = jws.Verify([]byte(compact), jws.WithKey(jwa.EdDSA(), keyDID.PublicKey()))
	require.NoError(t, err)

	signed, err = s.SignTransaction(ctx, testIntent())
	require.NoError(t, err)
	assert.Equal(t, uint64(8), *decodeEnvelope(t, signed.Tx).Headers.Nonce)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestOffchainSigner_FetchFailure(t *testing.T) {
	store := memory.NewMemoryPersistence()
	keyDID, err := did.NewKeyDIDFromSeed(make([]byte, 32))
	require.NoError(t, err)
	sess := session.NewOffchainSession(keyDID, store)
	fetcher := &countingFetcher{err: &types.TransportError{StatusCode: 502, Err: errors.New("bad gateway")}}

	s, err := NewTransactionSigner(sess, &SignerConfig{FetchNonce: fetcher.fetch})
	require.NoError(t, err)

	_, err = s.SignTransaction(context.Background(), testIntent())
	var te *types.TransportError
	assert.True(t, errors.As(err, &te))

	_, found, err := sess.Nonce.Peek(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOffchainSigner_CancelledContext(t *testing.T) {
	store := memory.NewMemoryPersistence()
	keyDID, err := did.NewKeyDIDFromSeed(make([]byte, 32))
	require.NoError(t, err)
	sess := session.NewOffchainSession(keyDID, store)
	_, err = sess.Nonce.Increment(context.Background(), 2)
	require.NoError(t, err)
	fetcher := &countingFetcher{}

	s, err := NewTransactionSigner(sess, &SignerConfig{FetchNonce: fetcher.fetch})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.SignTransaction(ctx, testIntent())
	assert.ErrorIs(t, err, context.Canceled)

	cached, _, err := sess.Nonce.Peek(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cached)
}

func TestEvmSigner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryPersistence()
	acct, err := evmAccount.NewPrivateKeyAccount(devKeyHex)
	require.NoError(t, err)
	sess := session.NewEvmSession(acct, store)
	fetcher := &countingFetcher{nonce: 0}

	s, err := NewTransactionSigner(sess, &SignerConfig{FetchNonce: fetcher.fetch, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	signed, err := s.SignTransaction(ctx, testIntent())
	require.NoError(t, err)

	pkh := "did:pkh:eip155:1:0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	assert.Equal(t, pkh, sess.Nonce.KeyGroup())

	env := decodeEnvelope(t, signed.Tx)
	assert.Equal(t, []string{pkh}, env.Headers.RequiredAuths)
	require.NotNil(t, env.Headers.Nonce)
	assert.Equal(t, uint64(0), *env.Headers.Nonce)

	block, err := codec.TextToBytes(signed.Tx)
	require.NoError(t, err)
	decoded, err := codec.Decode(block)
	require.NoError(t, err)
	typed, err := eip712.Derive(decoded, "")
	require.NoError(t, err)

	var headersType string
	for _, f := range typed.Types[eip712.DefaultPrimaryType] {
		if f.Name == "headers" {
			headersType = f.Type
		}
	}
	assert.Equal(t, "tx_container_v0.headers", headersType)

	digest, err := typed.Hash()
	require.NoError(t, err)

	bundle := decodeBundle(t, signed.Sig)
	require.Len(t, bundle.Sigs, 1)
	rec, ok := bundle.Sigs[0].(types.EIP191Signature)
	require.True(t, ok)
	raw, err := hexutil.Decode(rec.S)
	require.NoError(t, err)
	signer, err := evmAccount.RecoverMessageSigner(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, acct.Address(), signer)

	cached, found, err := sess.Nonce.Peek(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint64(1), cached)

	// A cached zero is a real nonce, not a cache miss.
	require.NoError(t, sess.Nonce.Clear(ctx))
	fetcher.calls.Store(0)
	_, err = s.SignTransaction(ctx, testIntent())
	require.NoError(t, err)
	_, err = s.SignTransaction(ctx, testIntent())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

type failingAccount struct {
	evmAccount.IEvmAccount
}

func (failingAccount) SignMessage(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("kms unavailable")
}

func TestEvmSigner_SigningFailureKeepsNonce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryPersistence()
	acct, err := evmAccount.NewPrivateKeyAccount(devKeyHex)
	require.NoError(t, err)
	sess := session.NewEvmSession(failingAccount{acct}, store)
	fetcher := &countingFetcher{nonce: 4}

	s, err := NewTransactionSigner(sess, &SignerConfig{FetchNonce: fetcher.fetch})
	require.NoError(t, err)

	_, err = s.SignTransaction(ctx, testIntent())
	var signErr *types.SigningFailedError
	require.True(t, errors.As(err, &signErr))

	cached, _, err := sess.Nonce.Peek(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), cached)
}
