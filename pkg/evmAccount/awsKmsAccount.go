package evmAccount

import (
	"context"
	"crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// IKmsClient is the subset of the AWS KMS API used for signing.
type IKmsClient interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// AwsKmsAccount signs with an ECC_SECG_P256K1 key held in AWS KMS.
type AwsKmsAccount struct {
	logger    *zap.Logger
	kmsClient IKmsClient
	keyId     string
	publicKey *ecdsa.PublicKey
	address   common.Address
}

// NewAwsKmsAccount resolves the public key of keyId and derives its address.
func NewAwsKmsAccount(ctx context.Context, awsCfg aws.Config, keyId string, logger *zap.Logger) (*AwsKmsAccount, error) {
	return NewAwsKmsAccountWithClient(ctx, kms.NewFromConfig(awsCfg), keyId, logger)
}

func NewAwsKmsAccountWithClient(ctx context.Context, client IKmsClient, keyId string, logger *zap.Logger) (*AwsKmsAccount, error) {
	if client == nil {
		return nil, fmt.Errorf("kms client is required")
	}
	if keyId == "" {
		return nil, fmt.Errorf("kms key id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	out, err := client.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(keyId)})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get public key for key %s", keyId)
	}
	pub, err := parseECDSAPublicKey(out.PublicKey)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse public key for key %s", keyId)
	}

	account := &AwsKmsAccount{
		logger:    logger,
		kmsClient: client,
		keyId:     keyId,
		publicKey: pub,
		address:   crypto.PubkeyToAddress(*pub),
	}
	logger.Sugar().Infow("Loaded KMS signing key",
		"keyId", keyId,
		"address", account.address.Hex(),
	)
	return account, nil
}

func (a *AwsKmsAccount) Address() common.Address {
	return a.address
}

func (a *AwsKmsAccount) SignMessage(ctx context.Context, data []byte) ([]byte, error) {
	return a.SignHash(ctx, accounts.TextHash(data))
}

// SignHash signs with KMS, normalizes s to the lower half of the curve order
// and finds the recovery id matching the key.
func (a *AwsKmsAccount) SignHash(ctx context.Context, hash []byte) ([]byte, error) {
	if len(hash) != common.HashLength {
		return nil, fmt.Errorf("hash must be exactly %d bytes, got %d", common.HashLength, len(hash))
	}

	out, err := a.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(a.keyId),
		Message:          hash,
		SigningAlgorithm: types.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      types.MessageTypeDigest,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "kms sign failed for key %s", a.keyId)
	}

	var der asn1EcSig
	if _, err := asn1.Unmarshal(out.Signature, &der); err != nil {
		return nil, errors.Wrap(err, "failed to parse kms signature")
	}
	r := new(big.Int).SetBytes(der.R.Bytes)
	s := new(big.Int).SetBytes(der.S.Bytes)
	if s.Cmp(secp256k1HalfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	sig := make([]byte, crypto.SignatureLength)
	r.FillBytes(sig[0:32])
	s.FillBytes(sig[32:64])

	for recoveryId := byte(0); recoveryId < 2; recoveryId++ {
		sig[64] = recoveryId
		recovered, err := crypto.SigToPub(hash, sig)
		if err != nil {
			a.logger.Debug("Recovery failed", zap.Uint8("recoveryId", recoveryId), zap.Error(err))
			continue
		}
		if recovered.X.Cmp(a.publicKey.X) == 0 && recovered.Y.Cmp(a.publicKey.Y) == 0 {
			sig[64] = 27 + recoveryId
			return sig, nil
		}
	}
	return nil, fmt.Errorf("could not determine recovery id for kms signature")
}

type asn1EcSig struct {
	R asn1.RawValue
	S asn1.RawValue
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

func parseECDSAPublicKey(der []byte) (*ecdsa.PublicKey, error) {
	var info asn1EcPublicKey
	if _, err := asn1.Unmarshal(der, &info); err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}
	return crypto.UnmarshalPubkey(info.PublicKey.Bytes)
}
