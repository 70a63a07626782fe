package envelope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
)

func TestBuild(t *testing.T) {
	intent := types.NewCallContractIntent("vs41q9c3yg", "testJSON", value.Object{{Key: "hello", Value: value.String("World")}})

	tests := []struct {
		name      string
		mode      types.LoginMode
		shape     HeaderShape
		wantNonce bool
	}{
		{name: "hive", mode: types.LoginModeHive, shape: HeaderShape{RequiredAuth: "alice"}},
		{name: "offchain", mode: types.LoginModeOffchain, shape: WithNonce("did:key:z6Mk", 3), wantNonce: true},
		{name: "evm", mode: types.LoginModeEvm, shape: WithNonce("did:pkh:eip155:1:0xabc", 0), wantNonce: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Build(intent, tt.shape)
			require.NoError(t, err)

			assert.Equal(t, types.EnvelopeVersion, env.Version)
			assert.Equal(t, types.EnvelopeKind, env.Kind)
			assert.Equal(t, types.HeaderTypeInput, env.Headers.Type)
			assert.Equal(t, []string{tt.shape.RequiredAuth}, env.Headers.RequiredAuths)
			assert.Equal(t, tt.wantNonce, env.Headers.Nonce != nil)
			assert.Equal(t, tt.mode.RequiresNonce(), env.Headers.Nonce != nil)
			assert.Equal(t, *intent, env.Tx)
		})
	}
}

func TestBuild_CopiesNonce(t *testing.T) {
	n := uint64(5)
	env, err := Build(types.NewCallContractIntent("c", "a", nil), HeaderShape{RequiredAuth: "x", Nonce: &n})
	require.NoError(t, err)
	n = 6
	assert.Equal(t, uint64(5), *env.Headers.Nonce)
}

func TestBuild_NonceRange(t *testing.T) {
	intent := types.NewCallContractIntent("c", "a", nil)

	env, err := Build(intent, WithNonce("x", types.MaxNonce))
	require.NoError(t, err)
	assert.Equal(t, types.MaxNonce, *env.Headers.Nonce)

	_, err = Build(intent, WithNonce("x", types.MaxNonce+1))
	assert.True(t, errors.Is(err, types.ErrNonceOutOfRange))
}

func TestBuild_NoIntent(t *testing.T) {
	_, err := Build(nil, HeaderShape{RequiredAuth: "alice"})
	assert.True(t, errors.Is(err, types.ErrNoIntentSet))
}
