package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"github.com/vsc-eco/vsc-client-go/pkg/config"
)

func main() {
	app := &cli.App{
		Name:  "vsc-client",
		Usage: "Sign and broadcast VSC network transactions",
		Description: `A command line client for the VSC network.

Transactions are signed either offchain with a did:key identity (--did-seed) or
with an EVM account (--evm-key, --kms-key-id or --web3signer-url) and submitted
to a VSC node over GraphQL.`,
		Version: "0.2.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "VSC node base URL",
				EnvVars: []string{config.EnvVscApi},
			},
			&cli.StringFlag{
				Name:    "graphql-path",
				Usage:   "GraphQL path on the node",
				EnvVars: []string{config.EnvVscGraphQLPath},
			},
			&cli.StringFlag{
				Name:    "nonce-cache",
				Usage:   "Nonce cache backend: memory, redis or badger",
				EnvVars: []string{config.EnvVscNonceCache},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address for the redis nonce cache",
				EnvVars: []string{config.EnvVscRedisAddress},
			},
			&cli.StringFlag{
				Name:    "badger-path",
				Usage:   "Data directory for the badger nonce cache",
				EnvVars: []string{config.EnvVscBadgerPath},
			},
			&cli.Float64Flag{
				Name:    "rps",
				Usage:   "Maximum GraphQL requests per second (0 = unlimited)",
				EnvVars: []string{config.EnvVscRequestsPerSecond},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvVscDebug},
			},
			&cli.StringFlag{
				Name:    "did-seed",
				Usage:   "Hex encoded 32 byte Ed25519 seed of the did:key identity",
				EnvVars: []string{"VSC_DID_SEED"},
			},
			&cli.StringFlag{
				Name:    "evm-key",
				Usage:   "Hex encoded secp256k1 private key",
				EnvVars: []string{"VSC_EVM_KEY"},
			},
			&cli.StringFlag{
				Name:    "kms-key-id",
				Usage:   "AWS KMS key id or alias of a secp256k1 key",
				EnvVars: []string{"VSC_KMS_KEY_ID"},
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Usage:   "AWS region of the KMS key",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.StringFlag{
				Name:    "aws-profile",
				Usage:   "AWS shared config profile",
				EnvVars: []string{"AWS_PROFILE"},
			},
			&cli.StringFlag{
				Name:    "web3signer-url",
				Usage:   "Web3Signer JSON-RPC URL",
				EnvVars: []string{"VSC_WEB3SIGNER_URL"},
			},
			&cli.StringFlag{
				Name:    "evm-address",
				Usage:   "Address of the Web3Signer key",
				EnvVars: []string{"VSC_EVM_ADDRESS"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "did",
				Usage:  "Print the did:key of --did-seed",
				Action: didCommand,
			},
			{
				Name:   "address",
				Usage:  "Print the address and did:pkh of the configured EVM signer",
				Action: addressCommand,
			},
			{
				Name:   "nonce",
				Usage:  "Print the nonce the next transaction will carry",
				Action: nonceCommand,
			},
			{
				Name:  "broadcast",
				Usage: "Sign and submit a call_contract transaction",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "contract-id",
						Usage:    "Contract to call",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "action",
						Usage:    "Contract action",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "payload",
						Usage: "JSON payload",
						Value: "{}",
					},
				},
				Action: broadcastCommand,
			},
			{
				Name:  "bench",
				Usage: "Broadcast many transactions concurrently and report throughput",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "contract-id",
						Usage:    "Contract to call",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "action",
						Usage: "Contract action",
						Value: "bench",
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of transactions",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Transactions in flight at once",
						Value: 4,
					},
				},
				Action: benchCommand,
			},
			{
				Name:  "keygen",
				Usage: "Create a did:key identity or an EVM signing key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Key type: did or evm",
						Value: "did",
					},
					&cli.BoolFlag{
						Name:  "kms",
						Usage: "Create the EVM key in AWS KMS instead of locally",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Key name tag",
						Value: "vsc-client",
					},
					&cli.StringFlag{
						Name:  "alias",
						Usage: "KMS alias for the new key (without alias/ prefix)",
					},
					&cli.StringFlag{
						Name:  "environment",
						Usage: "Environment tag for KMS keys",
						Value: "mainnet",
					},
				},
				Action: keygenCommand,
			},
			{
				Name:  "decode",
				Usage: "Decode a submitted transaction and signature bundle",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tx",
						Usage:    "base64url encoded transaction",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "sig",
						Usage: "base64url encoded signature bundle",
					},
				},
				Action: decodeCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
