package eip712

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsc-eco/vsc-client-go/pkg/value"
)

func containerFixture() value.Object {
	return value.Object{
		{Key: "tx", Value: value.Object{
			{Key: "op", Value: value.String("call_contract")},
			{Key: "action", Value: value.String("transfer")},
			{Key: "payload", Value: value.Object{
				{Key: "to", Value: value.String("hive:alice")},
				{Key: "amount", Value: value.Int(100)},
			}},
			{Key: "contract_id", Value: value.String("vsc1contract")},
		}},
		{Key: "__t", Value: value.String("vsc-tx")},
		{Key: "__v", Value: value.String("0.2")},
		{Key: "headers", Value: value.Object{
			{Key: "type", Value: value.Int(1)},
			{Key: "nonce", Value: value.Int(7)},
			{Key: "required_auths", Value: value.Array{value.String("did:pkh:eip155:1:0xabc")}},
		}},
	}
}

func TestDerive_Container(t *testing.T) {
	td, err := Derive(containerFixture(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultPrimaryType, td.PrimaryType)
	assert.Equal(t, DomainName, td.Domain.Name)
	assert.Equal(t, []apitypes.Type{{Name: "name", Type: "string"}}, td.Types["EIP712Domain"])

	assert.Equal(t, []apitypes.Type{
		{Name: "tx", Type: "tx_container_v0.tx"},
		{Name: "__t", Type: "string"},
		{Name: "__v", Type: "string"},
		{Name: "headers", Type: "tx_container_v0.headers"},
	}, td.Types["tx_container_v0"])

	assert.Equal(t, []apitypes.Type{
		{Name: "type", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "required_auths", Type: "string[]"},
	}, td.Types["tx_container_v0.headers"])

	assert.Equal(t, []apitypes.Type{
		{Name: "to", Type: "string"},
		{Name: "amount", Type: "uint256"},
	}, td.Types["tx_container_v0.tx.payload"])
	assert.Len(t, td.Types, 5)
}

func TestDerive_Deterministic(t *testing.T) {
	first, err := Derive(containerFixture(), "")
	require.NoError(t, err)
	second, err := Derive(containerFixture(), "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	h1, err := first.Hash()
	require.NoError(t, err)
	h2, err := second.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)
}

func TestDerive_ScalarTypes(t *testing.T) {
	td, err := Derive(value.Object{
		{Key: "b", Value: value.Bool(true)},
		{Key: "raw", Value: value.Bytes{1, 2}},
		{Key: "f", Value: value.Float(2)},
		{Key: "nums", Value: value.Array{value.Int(1), value.Int(2)}},
	}, "Flat")
	require.NoError(t, err)
	assert.Equal(t, []apitypes.Type{
		{Name: "b", Type: "bool"},
		{Name: "raw", Type: "bytes"},
		{Name: "f", Type: "uint256"},
		{Name: "nums", Type: "uint256[]"},
	}, td.Types["Flat"])
}

func TestDerive_Unsupported(t *testing.T) {
	tests := []struct {
		name    string
		input   value.Value
		wantErr error
	}{
		{name: "empty array", input: value.Object{{Key: "a", Value: value.Array{}}}, wantErr: ErrUnsupportedArray},
		{name: "array of objects", input: value.Object{{Key: "a", Value: value.Array{value.Object{}}}}, wantErr: ErrUnsupportedArray},
		{name: "array of arrays", input: value.Object{{Key: "a", Value: value.Array{value.Array{value.Int(1)}}}}, wantErr: ErrUnsupportedArray},
		{name: "null field", input: value.Object{{Key: "a", Value: value.Null{}}}, wantErr: ErrUnsupportedValue},
		{name: "nested null", input: value.Object{{Key: "o", Value: value.Object{{Key: "n", Value: value.Null{}}}}}, wantErr: ErrUnsupportedValue},
		{name: "non-object root", input: value.String("x"), wantErr: ErrUnsupportedValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive(tt.input, "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}
}

func TestEncodeType_DottedSubtypesResolveToRoot(t *testing.T) {
	td, err := Derive(containerFixture(), "")
	require.NoError(t, err)

	root, err := td.EncodeType(DefaultPrimaryType)
	require.NoError(t, err)
	assert.Equal(t, "tx_container_v0(tx_container_v0.tx tx,string __t,string __v,tx_container_v0.headers headers)", root)

	headers, err := td.EncodeType("tx_container_v0.headers")
	require.NoError(t, err)
	assert.Equal(t, "tx_container_v0.headers(uint256 type,uint256 nonce,string[] required_auths)"+root, headers)

	_, err = td.EncodeType("missing")
	assert.Error(t, err)
}

func TestTypeHash_Mail(t *testing.T) {
	td := &TypedData{
		Types: apitypes.Types{
			"Person": {{Name: "name", Type: "string"}, {Name: "wallet", Type: "address"}},
			"Mail":   {{Name: "from", Type: "Person"}, {Name: "to", Type: "Person"}, {Name: "contents", Type: "string"}},
		},
		PrimaryType: "Mail",
	}

	encoded, err := td.EncodeType("Mail")
	require.NoError(t, err)
	assert.Equal(t, "Mail(Person from,Person to,string contents)Person(string name,address wallet)", encoded)

	hash, err := td.TypeHash("Mail")
	require.NoError(t, err)
	assert.Equal(t, "0xa0cedeb2dc280ba39b857546d74f5549c3a1d7bdc2dd96bf881f76108e23dac2", hexutil.Encode(hash))
}

func TestHash_DomainSeparator(t *testing.T) {
	td, err := Derive(value.Object{{Key: "a", Value: value.String("b")}}, "Root")
	require.NoError(t, err)

	got, err := td.HashStruct("EIP712Domain", td.domainValue())
	require.NoError(t, err)

	want := crypto.Keccak256(
		crypto.Keccak256([]byte("EIP712Domain(string name)")),
		crypto.Keccak256([]byte(DomainName)),
	)
	assert.Equal(t, want, got)
}

func TestHash_MatchesGoEthereumForFlatSchemas(t *testing.T) {
	td, err := Derive(value.Object{
		{Key: "contents", Value: value.String("hello")},
		{Key: "count", Value: value.Int(42)},
	}, "Mail")
	require.NoError(t, err)

	ours, err := td.Hash()
	require.NoError(t, err)

	theirs, _, err := apitypes.TypedDataAndHash(td.ApiTypedData())
	require.NoError(t, err)
	assert.Equal(t, theirs, ours)
}

// The expected digest was computed outside Go by following viem's
// hashTypedData over the same types and message.
func TestHash_ContainerKnownDigest(t *testing.T) {
	td, err := Derive(containerFixture(), "")
	require.NoError(t, err)

	digest, err := td.Hash()
	require.NoError(t, err)
	assert.Equal(t, "0xcd671d602caa8d81ae42cd2cd1fae0307e9135519c161b131ad350b339673996", hexutil.Encode(digest))
}

func TestHash_RejectsBadNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input value.Value
	}{
		{name: "negative", input: value.Int(-1)},
		{name: "fractional", input: value.Float(1.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td, err := Derive(value.Object{{Key: "n", Value: tt.input}}, "")
			require.NoError(t, err)
			_, err = td.Hash()
			assert.Error(t, err)
		})
	}
}

func TestApiTypedData(t *testing.T) {
	td, err := Derive(containerFixture(), "")
	require.NoError(t, err)

	api := td.ApiTypedData()
	assert.Equal(t, DefaultPrimaryType, api.PrimaryType)
	headers, ok := api.Message["headers"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "7", headers["nonce"])
	assert.Equal(t, []interface{}{"did:pkh:eip155:1:0xabc"}, headers["required_auths"])
}
