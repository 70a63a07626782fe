package web3signer

import (
	"context"
	"net/http"
)

// IWeb3Signer is the subset of the Web3Signer JSON-RPC surface used to sign
// EIP-191 messages with a remotely held EVM key.
type IWeb3Signer interface {
	// SetHttpClient replaces the underlying HTTP client.
	SetHttpClient(client *http.Client)

	// EthAccounts corresponds to eth_accounts.
	EthAccounts(ctx context.Context) ([]string, error)

	// EthSign corresponds to eth_sign. data is 0x-prefixed hex; Web3Signer
	// applies the "\x19Ethereum Signed Message:\n" prefix itself.
	EthSign(ctx context.Context, account string, data string) (string, error)

	// HasAccount reports whether the signer holds a key for account.
	HasAccount(ctx context.Context, account string) (bool, error)
}

var _ IWeb3Signer = (*Client)(nil)
