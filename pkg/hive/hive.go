// Package hive describes the delegated signer used by the hive login mode.
// Wallet integrations (Keychain, HiveSigner, HiveAuth, Ledger, PeakVault)
// live outside this module and implement IDelegatedSigner.
package hive

import (
	"context"
	"fmt"
)

// ActionID is the custom_json id VSC transactions are broadcast under.
const ActionID = "vsc-tx"

// DefaultLoginMessage is signed during login when no message is given.
const DefaultLoginMessage = "Sign into VSC Client"

type Provider string

const (
	ProviderKeychain   Provider = "keychain"
	ProviderHiveSigner Provider = "hivesigner"
	ProviderHiveAuth   Provider = "hiveauth"
	ProviderLedger     Provider = "ledger"
	ProviderPeakVault  Provider = "peakvault"
	ProviderCustom     Provider = "custom"
)

var providers = []Provider{
	ProviderKeychain,
	ProviderHiveSigner,
	ProviderHiveAuth,
	ProviderLedger,
	ProviderPeakVault,
	ProviderCustom,
}

// ParseProvider maps a provider tag to a Provider.
func ParseProvider(tag string) (Provider, error) {
	for _, p := range providers {
		if string(p) == tag {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", tag)
}

// KeyType is the Hive authority level a payload is signed with.
type KeyType string

const (
	KeyTypePosting KeyType = "posting"
	KeyTypeActive  KeyType = "active"
)

func ParseKeyType(s string) (KeyType, error) {
	switch KeyType(s) {
	case KeyTypePosting, KeyTypeActive:
		return KeyType(s), nil
	default:
		return "", fmt.Errorf("unknown key type %q", s)
	}
}

type LoginOptions struct {
	Msg     string
	KeyType KeyType
	// DisplayQR receives the HiveAuth payload to render for the user.
	DisplayQR func(payload string)
	// HiveApi overrides the Hive API nodes the signer broadcasts through.
	HiveApi []string
}

// WithDefaults fills the login message and key type when unset.
func (o *LoginOptions) WithDefaults() *LoginOptions {
	out := LoginOptions{}
	if o != nil {
		out = *o
	}
	if out.Msg == "" {
		out.Msg = DefaultLoginMessage
	}
	if out.KeyType == "" {
		out.KeyType = KeyTypePosting
	}
	return &out
}

type LoginResult struct {
	Success bool
	Error   string
}

type OperationResult struct {
	Success bool
	// Result is the transaction id on success.
	Result string
	Error  string
}

// IDelegatedSigner holds a user's keys outside this process and signs and
// submits payloads on their behalf.
type IDelegatedSigner interface {
	Login(ctx context.Context, provider Provider, username string, opts *LoginOptions) LoginResult
	Logout(ctx context.Context) error
	IsLoggedIn() bool
	// CurrentUser returns "" when nobody is logged in.
	CurrentUser() string
	SignAndSubmitJSON(ctx context.Context, keyType KeyType, id string, payload interface{}) OperationResult
	OnAccountChanged(callback func(username string))
}
