package hive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	for _, tag := range []string{"keychain", "hivesigner", "hiveauth", "ledger", "peakvault", "custom"} {
		p, err := ParseProvider(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, string(p))
	}
	_, err := ParseProvider("metamask")
	assert.Error(t, err)
}

func TestParseKeyType(t *testing.T) {
	kt, err := ParseKeyType("active")
	require.NoError(t, err)
	assert.Equal(t, KeyTypeActive, kt)

	_, err = ParseKeyType("owner")
	assert.Error(t, err)
}

func TestLoginOptions_WithDefaults(t *testing.T) {
	var nilOpts *LoginOptions
	d := nilOpts.WithDefaults()
	assert.Equal(t, DefaultLoginMessage, d.Msg)
	assert.Equal(t, KeyTypePosting, d.KeyType)

	custom := &LoginOptions{Msg: "hello", KeyType: KeyTypeActive}
	d = custom.WithDefaults()
	assert.Equal(t, "hello", d.Msg)
	assert.Equal(t, KeyTypeActive, d.KeyType)
	assert.NotSame(t, custom, d)
}
