package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vsc-eco/vsc-client-go/pkg/clients/web3signer"
	"github.com/vsc-eco/vsc-client-go/pkg/config"
	"github.com/vsc-eco/vsc-client-go/pkg/evmAccount"
	"github.com/vsc-eco/vsc-client-go/pkg/logger"
)

// Signs the same message through Web3Signer and with the raw key it holds and
// compares the results. Both use RFC 6979 nonces, so they must be identical.
func main() {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	ctx := context.Background()

	localAccount, err := evmAccount.NewPrivateKeyAccount(os.Getenv("PRIVATE_KEY"))
	if err != nil {
		l.Sugar().Fatalw("failed to parse PRIVATE_KEY", "error", err)
	}

	signerCfg := &config.RemoteSignerConfig{
		Url:         "http://localhost:9100",
		FromAddress: localAccount.Address().Hex(),
	}
	if url := os.Getenv("WEB3SIGNER_URL"); url != "" {
		signerCfg.Url = url
	}
	if err := signerCfg.Validate(); err != nil {
		l.Sugar().Fatalw("invalid remote signer config", "error", err)
	}

	client, err := web3signer.NewWeb3SignerClientFromRemoteSignerConfig(signerCfg, l)
	if err != nil {
		l.Sugar().Fatalw("failed to create Web3Signer client", "error", err)
	}
	remoteAccount, err := evmAccount.NewWeb3SignerAccount(ctx, client, localAccount.Address(), l)
	if err != nil {
		l.Sugar().Fatalw("failed to create Web3Signer account", "error", err)
	}

	message := []byte("Hello, Web3Signer!")

	signatureWeb3, err := remoteAccount.SignMessage(ctx, message)
	if err != nil {
		l.Sugar().Fatalw("failed to sign message with Web3Signer", "error", err)
	}
	signaturePK, err := localAccount.SignMessage(ctx, message)
	if err != nil {
		l.Sugar().Fatalw("failed to sign message with private key", "error", err)
	}

	fmt.Printf("Message: %s\n", message)
	fmt.Printf("Signature (Web3Signer):  %s\n", hexutil.Encode(signatureWeb3))
	fmt.Printf("Signature (Private Key): %s\n", hexutil.Encode(signaturePK))

	if hexutil.Encode(signatureWeb3) == hexutil.Encode(signaturePK) {
		fmt.Println("Signatures match!")
	} else {
		fmt.Println("Signatures do not match!")
		os.Exit(1)
	}
}
