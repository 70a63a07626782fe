package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/vsc-eco/vsc-client-go/internal/aws"
	"github.com/vsc-eco/vsc-client-go/internal/keyGenerator"
	"github.com/vsc-eco/vsc-client-go/internal/keyGenerator/awsKms"
	"github.com/vsc-eco/vsc-client-go/internal/keyGenerator/localKeyGenerator"
)

func keygenCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}

	var key *keyGenerator.GeneratedKey
	switch c.String("type") {
	case "did":
		if c.Bool("kms") {
			return fmt.Errorf("did:key identities cannot be created in KMS")
		}
		key, err = localKeyGenerator.NewLocalKeyGenerator(l).GenerateDIDKey(c.Context)
	case "evm":
		var generator keyGenerator.IKeyGenerator = localKeyGenerator.NewLocalKeyGenerator(l)
		if c.Bool("kms") {
			awsCfg, cfgErr := aws.LoadAWSConfig(c.Context, c.String("aws-region"), c.String("aws-profile"))
			if cfgErr != nil {
				return cfgErr
			}
			generator = awsKms.NewAWSKMSKeyGenerator(awsCfg, c.String("environment"), l)
		}
		key, err = generator.GenerateEvmKey(c.Context, c.String("name"), c.String("alias"))
	default:
		return fmt.Errorf("unknown key type %q (expected did or evm)", c.String("type"))
	}
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	fmt.Printf("key id:  %s\n", key.KeyId)
	fmt.Printf("did:     %s\n", key.DID)
	if key.IsEvm() {
		fmt.Printf("address: %s\n", key.Address.Hex())
	}
	if key.Secret != "" {
		fmt.Printf("secret:  %s\n", key.Secret)
	}
	return nil
}
