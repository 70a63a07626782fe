package main

import (
	"context"
	"os"

	"github.com/vsc-eco/vsc-client-go/internal/aws"
	"github.com/vsc-eco/vsc-client-go/internal/keyGenerator/awsKms"
	"github.com/vsc-eco/vsc-client-go/pkg/logger"
)

func main() {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	ctx := context.Background()

	keyId := os.Getenv("KEY_ID")
	if keyId == "" {
		l.Sugar().Fatal("KEY_ID environment variable is not set")
	}

	awsCfg, err := aws.LoadAWSConfig(ctx, os.Getenv("AWS_REGION"), "")
	if err != nil {
		l.Sugar().Fatalw("failed to load AWS config", "error", err)
	}
	if arn, err := aws.CallerARN(ctx, awsCfg); err == nil {
		l.Sugar().Infow("AWS identity", "arn", arn)
	}

	keyGen := awsKms.NewAWSKMSKeyGenerator(awsCfg, "", l)
	key, err := keyGen.GetEvmKeyById(ctx, keyId)
	if err != nil {
		l.Sugar().Fatalw("failed to load KMS key", "error", err)
	}

	l.Sugar().Infow("KMS key",
		"keyId", key.KeyId,
		"address", key.Address.Hex(),
		"did", key.DID,
	)
}
