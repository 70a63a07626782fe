package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for client configuration
const (
	EnvVscApi               = "VSC_API"
	EnvVscGraphQLPath       = "VSC_GRAPHQL_PATH"
	EnvVscHiveApi           = "VSC_HIVE_API"
	EnvVscNonceCache        = "VSC_NONCE_CACHE"
	EnvVscRedisAddress      = "VSC_REDIS_ADDRESS"
	EnvVscRedisPassword     = "VSC_REDIS_PASSWORD"
	EnvVscRedisDB           = "VSC_REDIS_DB"
	EnvVscRedisKeyPrefix    = "VSC_REDIS_KEY_PREFIX"
	EnvVscRedisTTL          = "VSC_REDIS_TTL"
	EnvVscBadgerPath        = "VSC_BADGER_PATH"
	EnvVscRequestsPerSecond = "VSC_REQUESTS_PER_SECOND"
	EnvVscRequestTimeout    = "VSC_REQUEST_TIMEOUT"
	EnvVscDebug             = "VSC_DEBUG"
)

const (
	DefaultGraphQLPath    = "/api/v1/graphql"
	DefaultRequestTimeout = 30 * time.Second
)

type NonceCacheType string

const (
	NonceCacheType_Memory NonceCacheType = "memory"
	NonceCacheType_Redis  NonceCacheType = "redis"
	NonceCacheType_Badger NonceCacheType = "badger"
)

func (n NonceCacheType) String() string {
	return string(n)
}

func ParseNonceCacheType(s string) (NonceCacheType, error) {
	switch NonceCacheType(strings.ToLower(s)) {
	case "", NonceCacheType_Memory:
		return NonceCacheType_Memory, nil
	case NonceCacheType_Redis:
		return NonceCacheType_Redis, nil
	case NonceCacheType_Badger:
		return NonceCacheType_Badger, nil
	default:
		return "", fmt.Errorf("unknown nonce cache type %q (expected memory, redis or badger)", s)
	}
}

type RedisConfig struct {
	Address   string        `json:"address" yaml:"address"`
	Password  string        `json:"password" yaml:"password"`
	DB        int           `json:"db" yaml:"db"`
	KeyPrefix string        `json:"keyPrefix" yaml:"keyPrefix"`
	TTL       time.Duration `json:"ttl" yaml:"ttl"`
}

type NonceCacheConfig struct {
	Type       NonceCacheType `json:"type" yaml:"type"`
	Redis      *RedisConfig   `json:"redis,omitempty" yaml:"redis,omitempty"`
	BadgerPath string         `json:"badgerPath" yaml:"badgerPath"`
}

// ClientConfig is everything a client needs to reach a VSC node. There is no
// built-in default endpoint; Api must always be supplied.
type ClientConfig struct {
	// Api is the base URL of a VSC node, e.g. https://api.vsc.eco
	Api         string `json:"api" yaml:"api"`
	GraphQLPath string `json:"graphqlPath" yaml:"graphqlPath"`

	// HiveApi lists the Hive nodes handed to the delegated signer.
	HiveApi []string `json:"hiveApi" yaml:"hiveApi"`

	NonceCache NonceCacheConfig `json:"nonceCache" yaml:"nonceCache"`

	// RequestsPerSecond throttles GraphQL calls. Zero disables throttling.
	RequestsPerSecond float64       `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	RequestTimeout    time.Duration `json:"requestTimeout" yaml:"requestTimeout"`

	Debug bool `json:"debug" yaml:"debug"`
}

// GraphQLEndpoint joins Api and GraphQLPath.
func (c *ClientConfig) GraphQLEndpoint() string {
	path := c.GraphQLPath
	if path == "" {
		path = DefaultGraphQLPath
	}
	return strings.TrimRight(c.Api, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *ClientConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Api == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("api"), "api is required"))
	} else if u, err := url.Parse(c.Api); err != nil || u.Scheme == "" || u.Host == "" {
		allErrors = append(allErrors, field.Invalid(field.NewPath("api"), c.Api, "api must be an absolute URL"))
	}

	if c.RequestsPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestsPerSecond"), c.RequestsPerSecond, "must not be negative"))
	}
	if c.RequestTimeout < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestTimeout"), c.RequestTimeout.String(), "must not be negative"))
	}

	cachePath := field.NewPath("nonceCache")
	switch c.NonceCache.Type {
	case "", NonceCacheType_Memory:
	case NonceCacheType_Redis:
		if c.NonceCache.Redis == nil || c.NonceCache.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(cachePath.Child("redis", "address"), "redis address is required for the redis nonce cache"))
		}
	case NonceCacheType_Badger:
		if c.NonceCache.BadgerPath == "" {
			allErrors = append(allErrors, field.Required(cachePath.Child("badgerPath"), "badgerPath is required for the badger nonce cache"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(cachePath.Child("type"), c.NonceCache.Type,
			[]string{string(NonceCacheType_Memory), string(NonceCacheType_Redis), string(NonceCacheType_Badger)}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// LoadClientConfigFromEnv reads a ClientConfig from VSC_* environment variables.
func LoadClientConfigFromEnv() (*ClientConfig, error) {
	cacheType, err := ParseNonceCacheType(os.Getenv(EnvVscNonceCache))
	if err != nil {
		return nil, err
	}

	cfg := &ClientConfig{
		Api:         os.Getenv(EnvVscApi),
		GraphQLPath: os.Getenv(EnvVscGraphQLPath),
		HiveApi:     splitList(os.Getenv(EnvVscHiveApi)),
		NonceCache: NonceCacheConfig{
			Type:       cacheType,
			BadgerPath: os.Getenv(EnvVscBadgerPath),
		},
		RequestTimeout: DefaultRequestTimeout,
	}

	if addr := os.Getenv(EnvVscRedisAddress); addr != "" {
		cfg.NonceCache.Redis = &RedisConfig{
			Address:   addr,
			Password:  os.Getenv(EnvVscRedisPassword),
			KeyPrefix: os.Getenv(EnvVscRedisKeyPrefix),
		}
		if db := os.Getenv(EnvVscRedisDB); db != "" {
			if cfg.NonceCache.Redis.DB, err = strconv.Atoi(db); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", EnvVscRedisDB, err)
			}
		}
		if ttl := os.Getenv(EnvVscRedisTTL); ttl != "" {
			if cfg.NonceCache.Redis.TTL, err = time.ParseDuration(ttl); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", EnvVscRedisTTL, err)
			}
		}
	}

	if rps := os.Getenv(EnvVscRequestsPerSecond); rps != "" {
		if cfg.RequestsPerSecond, err = strconv.ParseFloat(rps, 64); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvVscRequestsPerSecond, err)
		}
	}
	if timeout := os.Getenv(EnvVscRequestTimeout); timeout != "" {
		if cfg.RequestTimeout, err = time.ParseDuration(timeout); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvVscRequestTimeout, err)
		}
	}
	if debug := os.Getenv(EnvVscDebug); debug != "" {
		if cfg.Debug, err = strconv.ParseBool(debug); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvVscDebug, err)
		}
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// RemoteSignerConfig points at a Web3Signer instance holding an EVM key.
type RemoteSignerConfig struct {
	Url         string        `json:"url" yaml:"url"`
	FromAddress string        `json:"fromAddress" yaml:"fromAddress"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

func (rsc *RemoteSignerConfig) Validate() error {
	var allErrors field.ErrorList
	if rsc.Url == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("url"), "url is required"))
	}
	if rsc.FromAddress == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("fromAddress"), "fromAddress is required"))
	} else if !common.IsHexAddress(rsc.FromAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("fromAddress"), rsc.FromAddress, "fromAddress must be a hex address"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// AwsKmsSignerConfig selects a secp256k1 key in AWS KMS.
type AwsKmsSignerConfig struct {
	KeyId   string `json:"keyId" yaml:"keyId"`
	Region  string `json:"region" yaml:"region"`
	Profile string `json:"profile" yaml:"profile"`
}

func (a *AwsKmsSignerConfig) Validate() error {
	var allErrors field.ErrorList
	if a.KeyId == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("keyId"), "keyId is required"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
