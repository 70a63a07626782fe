package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"github.com/vsc-eco/vsc-client-go/internal/aws"
	"github.com/vsc-eco/vsc-client-go/pkg/client"
	"github.com/vsc-eco/vsc-client-go/pkg/clients/web3signer"
	"github.com/vsc-eco/vsc-client-go/pkg/config"
	"github.com/vsc-eco/vsc-client-go/pkg/did"
	"github.com/vsc-eco/vsc-client-go/pkg/evmAccount"
	"github.com/vsc-eco/vsc-client-go/pkg/logger"
	"go.uber.org/zap"
)

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("debug")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

// loadConfig reads VSC_* variables and applies command line overrides.
func loadConfig(c *cli.Context) (*config.ClientConfig, error) {
	cfg, err := config.LoadClientConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if v := c.String("api"); v != "" {
		cfg.Api = v
	}
	if v := c.String("graphql-path"); v != "" {
		cfg.GraphQLPath = v
	}
	if v := c.String("nonce-cache"); v != "" {
		if cfg.NonceCache.Type, err = config.ParseNonceCacheType(v); err != nil {
			return nil, err
		}
	}
	if v := c.String("redis-address"); v != "" {
		if cfg.NonceCache.Redis == nil {
			cfg.NonceCache.Redis = &config.RedisConfig{}
		}
		cfg.NonceCache.Redis.Address = v
	}
	if v := c.String("badger-path"); v != "" {
		cfg.NonceCache.BadgerPath = v
	}
	if c.IsSet("rps") {
		cfg.RequestsPerSecond = c.Float64("rps")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadDID(c *cli.Context) (*did.KeyDID, error) {
	seed := c.String("did-seed")
	if seed == "" {
		return nil, fmt.Errorf("--did-seed is required")
	}
	return did.NewKeyDIDFromHex(seed)
}

// loadEvmAccount picks the first configured EVM signer: a raw key, an AWS KMS
// key or a Web3Signer account.
func loadEvmAccount(ctx context.Context, c *cli.Context, l *zap.Logger) (evmAccount.IEvmAccount, error) {
	switch {
	case c.String("evm-key") != "":
		return evmAccount.NewPrivateKeyAccount(c.String("evm-key"))

	case c.String("kms-key-id") != "":
		kmsCfg := &config.AwsKmsSignerConfig{
			KeyId:   c.String("kms-key-id"),
			Region:  c.String("aws-region"),
			Profile: c.String("aws-profile"),
		}
		if err := kmsCfg.Validate(); err != nil {
			return nil, err
		}
		awsCfg, err := aws.LoadAWSConfig(ctx, kmsCfg.Region, kmsCfg.Profile)
		if err != nil {
			return nil, err
		}
		if arn, err := aws.CallerARN(ctx, awsCfg); err != nil {
			l.Sugar().Warnw("Failed to resolve AWS caller identity", "error", err)
		} else {
			l.Sugar().Infow("Using AWS identity", "arn", arn)
		}
		return evmAccount.NewAwsKmsAccount(ctx, awsCfg, kmsCfg.KeyId, l)

	case c.String("web3signer-url") != "":
		rsc := &config.RemoteSignerConfig{
			Url:         c.String("web3signer-url"),
			FromAddress: c.String("evm-address"),
			Timeout:     30 * time.Second,
		}
		if err := rsc.Validate(); err != nil {
			return nil, err
		}
		signer, err := web3signer.NewWeb3SignerClientFromRemoteSignerConfig(rsc, l)
		if err != nil {
			return nil, err
		}
		return evmAccount.NewWeb3SignerAccount(ctx, signer, common.HexToAddress(rsc.FromAddress), l)

	default:
		return nil, fmt.Errorf("no EVM signer configured (use --evm-key, --kms-key-id or --web3signer-url)")
	}
}

// newLoggedInClient creates a client and logs in with the DID when a seed is
// given, otherwise with the EVM signer.
func newLoggedInClient(ctx context.Context, c *cli.Context) (*client.Client, *zap.Logger, error) {
	l, err := newLogger(c)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	vsc, err := client.NewClient(&client.ClientConfig{Config: cfg, Logger: l})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}

	if c.String("did-seed") != "" {
		keyDID, err := loadDID(c)
		if err != nil {
			_ = vsc.Close()
			return nil, nil, err
		}
		err = vsc.LoginWithDID(ctx, keyDID)
		if err != nil {
			_ = vsc.Close()
			return nil, nil, err
		}
		return vsc, l, nil
	}

	account, err := loadEvmAccount(ctx, c, l)
	if err != nil {
		_ = vsc.Close()
		return nil, nil, err
	}
	if err := vsc.LoginWithEVM(ctx, account); err != nil {
		_ = vsc.Close()
		return nil, nil, err
	}
	return vsc, l, nil
}
