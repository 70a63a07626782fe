package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ClientConfig
		wantErr string
	}{
		{name: "minimal", cfg: ClientConfig{Api: "https://api.vsc.eco"}},
		{name: "missing api", cfg: ClientConfig{}, wantErr: "api is required"},
		{name: "relative api", cfg: ClientConfig{Api: "api.vsc.eco"}, wantErr: "absolute URL"},
		{name: "negative rate", cfg: ClientConfig{Api: "http://localhost:8080", RequestsPerSecond: -1}, wantErr: "requestsPerSecond"},
		{
			name:    "redis without address",
			cfg:     ClientConfig{Api: "http://localhost:8080", NonceCache: NonceCacheConfig{Type: NonceCacheType_Redis}},
			wantErr: "nonceCache.redis.address",
		},
		{
			name:    "badger without path",
			cfg:     ClientConfig{Api: "http://localhost:8080", NonceCache: NonceCacheConfig{Type: NonceCacheType_Badger}},
			wantErr: "nonceCache.badgerPath",
		},
		{
			name:    "unknown cache",
			cfg:     ClientConfig{Api: "http://localhost:8080", NonceCache: NonceCacheConfig{Type: "etcd"}},
			wantErr: "nonceCache.type",
		},
		{
			name: "badger with path",
			cfg:  ClientConfig{Api: "http://localhost:8080", NonceCache: NonceCacheConfig{Type: NonceCacheType_Badger, BadgerPath: "/tmp/nonces"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClientConfig_GraphQLEndpoint(t *testing.T) {
	cfg := &ClientConfig{Api: "https://api.vsc.eco/"}
	assert.Equal(t, "https://api.vsc.eco/api/v1/graphql", cfg.GraphQLEndpoint())

	cfg.GraphQLPath = "graphql"
	assert.Equal(t, "https://api.vsc.eco/graphql", cfg.GraphQLEndpoint())
}

func TestLoadClientConfigFromEnv(t *testing.T) {
	t.Setenv(EnvVscApi, "http://localhost:7080")
	t.Setenv(EnvVscHiveApi, "https://api.hive.blog, https://anyx.io")
	t.Setenv(EnvVscNonceCache, "redis")
	t.Setenv(EnvVscRedisAddress, "localhost:6379")
	t.Setenv(EnvVscRedisDB, "3")
	t.Setenv(EnvVscRedisTTL, "10m")
	t.Setenv(EnvVscRequestsPerSecond, "2.5")
	t.Setenv(EnvVscDebug, "true")

	cfg, err := LoadClientConfigFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:7080", cfg.Api)
	assert.Equal(t, []string{"https://api.hive.blog", "https://anyx.io"}, cfg.HiveApi)
	assert.Equal(t, NonceCacheType_Redis, cfg.NonceCache.Type)
	require.NotNil(t, cfg.NonceCache.Redis)
	assert.Equal(t, 3, cfg.NonceCache.Redis.DB)
	assert.Equal(t, 10*time.Minute, cfg.NonceCache.Redis.TTL)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.True(t, cfg.Debug)
}

func TestLoadClientConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv(EnvVscNonceCache, "etcd")
	_, err := LoadClientConfigFromEnv()
	assert.Error(t, err)

	t.Setenv(EnvVscNonceCache, "")
	t.Setenv(EnvVscRequestTimeout, "soon")
	_, err = LoadClientConfigFromEnv()
	assert.Error(t, err)
}

func TestRemoteSignerConfig_Validate(t *testing.T) {
	assert.Error(t, (&RemoteSignerConfig{}).Validate())
	assert.Error(t, (&RemoteSignerConfig{Url: "http://signer:9000", FromAddress: "nope"}).Validate())
	assert.NoError(t, (&RemoteSignerConfig{Url: "http://signer:9000", FromAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"}).Validate())
}

func TestAwsKmsSignerConfig_Validate(t *testing.T) {
	assert.Error(t, (&AwsKmsSignerConfig{}).Validate())
	assert.NoError(t, (&AwsKmsSignerConfig{KeyId: "alias/vsc"}).Validate())
}
