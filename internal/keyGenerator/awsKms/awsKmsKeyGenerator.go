package awsKms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/pkg/errors"
	"github.com/vsc-eco/vsc-client-go/internal/keyGenerator"
	"github.com/vsc-eco/vsc-client-go/pkg/evmAccount"
	"go.uber.org/zap"
)

// IKmsKeyClient is the subset of the AWS KMS API used to create signing keys.
type IKmsKeyClient interface {
	evmAccount.IKmsClient
	CreateKey(ctx context.Context, params *kms.CreateKeyInput, optFns ...func(*kms.Options)) (*kms.CreateKeyOutput, error)
	CreateAlias(ctx context.Context, params *kms.CreateAliasInput, optFns ...func(*kms.Options)) (*kms.CreateAliasOutput, error)
}

type AWSKMSKeyGenerator struct {
	logger      *zap.Logger
	kmsClient   IKmsKeyClient
	awsRegion   string
	environment string
}

var _ keyGenerator.IKeyGenerator = (*AWSKMSKeyGenerator)(nil)

func NewAWSKMSKeyGenerator(awsCfg aws.Config, environment string, logger *zap.Logger) *AWSKMSKeyGenerator {
	return NewAWSKMSKeyGeneratorWithClient(kms.NewFromConfig(awsCfg), awsCfg.Region, environment, logger)
}

func NewAWSKMSKeyGeneratorWithClient(client IKmsKeyClient, awsRegion string, environment string, logger *zap.Logger) *AWSKMSKeyGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSKMSKeyGenerator{
		logger:      logger,
		kmsClient:   client,
		awsRegion:   awsRegion,
		environment: environment,
	}
}

func (a *AWSKMSKeyGenerator) GenerateEvmKey(ctx context.Context, keyName string, aliasName string) (*keyGenerator.GeneratedKey, error) {
	keyRes, err := a.createSigningKey(ctx, keyName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create key %s in region %s", keyName, a.awsRegion)
	}
	keyId := aws.ToString(keyRes.KeyMetadata.KeyId)

	if aliasName != "" {
		if err := a.createKeyAlias(ctx, keyId, aliasName); err != nil {
			return nil, errors.Wrapf(err, "failed to create alias %s for key %s in region %s", aliasName, keyId, a.awsRegion)
		}
	}
	return a.GetEvmKeyById(ctx, keyId)
}

func (a *AWSKMSKeyGenerator) GetEvmKeyById(ctx context.Context, keyId string) (*keyGenerator.GeneratedKey, error) {
	account, err := evmAccount.NewAwsKmsAccountWithClient(ctx, a.kmsClient, keyId, a.logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load key %s in region %s", keyId, a.awsRegion)
	}
	a.logger.Sugar().Infow("Resolved KMS key",
		"keyId", keyId,
		"address", account.Address().Hex(),
	)
	return keyGenerator.NewEvmKey(keyId, "", account.Address()), nil
}

func (a *AWSKMSKeyGenerator) createSigningKey(ctx context.Context, keyName string) (*kms.CreateKeyOutput, error) {
	input := &kms.CreateKeyInput{
		KeyUsage:    types.KeyUsageTypeSignVerify,
		KeySpec:     types.KeySpecEccSecgP256k1,
		Description: aws.String(fmt.Sprintf("secp256k1 key for VSC transaction signing - %s", keyName)),
		Tags: []types.Tag{
			{TagKey: aws.String("Name"), TagValue: aws.String(keyName)},
			{TagKey: aws.String("Environment"), TagValue: aws.String(a.environment)},
			{TagKey: aws.String("Purpose"), TagValue: aws.String("vsc-signing-key")},
			{TagKey: aws.String("Curve"), TagValue: aws.String("secp256k1")},
		},
	}

	result, err := a.kmsClient.CreateKey(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create KMS key: %w", err)
	}
	if result.KeyMetadata == nil || result.KeyMetadata.KeyId == nil {
		return nil, fmt.Errorf("KMS returned no key metadata")
	}
	return result, nil
}

func (a *AWSKMSKeyGenerator) createKeyAlias(ctx context.Context, keyId, aliasName string) error {
	_, err := a.kmsClient.CreateAlias(ctx, &kms.CreateAliasInput{
		AliasName:   aws.String(fmt.Sprintf("alias/%s", aliasName)),
		TargetKeyId: aws.String(keyId),
	})
	if err != nil {
		return fmt.Errorf("failed to create key alias: %w", err)
	}
	return nil
}
