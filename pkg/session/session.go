// Package session holds the state of one login: which substrate the client
// authenticated with and exactly the key material that substrate needs.
package session

import (
	"context"

	"github.com/vsc-eco/vsc-client-go/pkg/did"
	"github.com/vsc-eco/vsc-client-go/pkg/evmAccount"
	"github.com/vsc-eco/vsc-client-go/pkg/hive"
	"github.com/vsc-eco/vsc-client-go/pkg/persistence"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
)

// Session is one of *HiveSession, *OffchainSession or *EvmSession.
type Session interface {
	Mode() types.LoginMode
	// Identity is the username, DID or checksummed address the session signs as.
	Identity() string

	// Acquire waits for the session's broadcast slot. Only one broadcast runs
	// per session at a time so nonces are never read twice.
	Acquire(ctx context.Context) error
	Release()

	isSession()
}

// ModeOf returns the mode of s, or LoginModeUnset for a nil session.
func ModeOf(s Session) types.LoginMode {
	if s == nil {
		return types.LoginModeUnset
	}
	return s.Mode()
}

type broadcastSlot struct {
	ch chan struct{}
}

func newBroadcastSlot() broadcastSlot {
	return broadcastSlot{ch: make(chan struct{}, 1)}
}

func (b broadcastSlot) Acquire(ctx context.Context) error {
	select {
	case b.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b broadcastSlot) Release() {
	select {
	case <-b.ch:
	default:
	}
}

type HiveSession struct {
	broadcastSlot
	Username string
	// Signer may be nil when the delegated signer was never initialized.
	Signer hive.IDelegatedSigner
}

func NewHiveSession(username string, signer hive.IDelegatedSigner) *HiveSession {
	return &HiveSession{
		broadcastSlot: newBroadcastSlot(),
		Username:      username,
		Signer:        signer,
	}
}

func (*HiveSession) Mode() types.LoginMode { return types.LoginModeHive }
func (h *HiveSession) Identity() string { return h.Username }
func (*HiveSession) isSession() {}

type OffchainSession struct {
	broadcastSlot
	DID   did.IDID
	Nonce *NonceTracker
}

// NewOffchainSession tracks the nonce of the DID's own key group.
func NewOffchainSession(d did.IDID, store persistence.INoncePersistence) *OffchainSession {
	s := &OffchainSession{
		broadcastSlot: newBroadcastSlot(),
		DID:           d,
	}
	if d != nil {
		s.Nonce = NewNonceTracker(store, d.ID())
	}
	return s
}

func (*OffchainSession) Mode() types.LoginMode { return types.LoginModeOffchain }
func (*OffchainSession) isSession() {}

func (o *OffchainSession) Identity() string {
	if o.DID == nil {
		return ""
	}
	return o.DID.ID()
}

type EvmSession struct {
	broadcastSlot
	Account evmAccount.IEvmAccount
	Nonce   *NonceTracker
}

// NewEvmSession tracks the nonce of the account's did:pkh key group.
func NewEvmSession(account evmAccount.IEvmAccount, store persistence.INoncePersistence) *EvmSession {
	s := &EvmSession{
		broadcastSlot: newBroadcastSlot(),
		Account:       account,
	}
	if account != nil {
		s.Nonce = NewNonceTracker(store, s.RequiredAuth())
	}
	return s
}

func (*EvmSession) Mode() types.LoginMode { return types.LoginModeEvm }
func (*EvmSession) isSession() {}

func (e *EvmSession) Identity() string {
	if e.Account == nil {
		return ""
	}
	return e.Account.Address().Hex()
}

// RequiredAuth is the did:pkh identifier envelopes are authorized by.
func (e *EvmSession) RequiredAuth() string {
	return did.PkhDID(did.EvmChainId, e.Account.Address())
}
