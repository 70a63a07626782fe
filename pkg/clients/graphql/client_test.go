package graphql

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsc-eco/vsc-client-go/pkg/clients/graphql/graphqlTest"
	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, srv *graphqlTest.Server) *Client {
	t.Helper()
	c, err := NewClient(&Config{Endpoint: srv.Endpoint(), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&Config{})
	assert.Error(t, err)

	_, err = NewClient(&Config{Endpoint: "http://localhost", RequestsPerSecond: -1})
	assert.Error(t, err)

	c, err := NewClient(&Config{Endpoint: "http://localhost", RequestsPerSecond: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, c.limiter.Burst())
}

func TestSubmitTransaction(t *testing.T) {
	srv := graphqlTest.NewServer(t, 0)
	c := newTestClient(t, srv)

	res, err := c.SubmitTransaction(context.Background(), "dHg", "c2ln")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", res.Id)
	assert.Equal(t, []graphqlTest.Submission{{Tx: "dHg", Sig: "c2ln"}}, srv.Submissions())
}

func TestGetAccountNonce(t *testing.T) {
	srv := graphqlTest.NewServer(t, 42)
	c := newTestClient(t, srv)

	nonce, err := c.GetAccountNonce(context.Background(), "did:key:z6Mk")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), nonce)
	assert.Equal(t, []string{"did:key:z6Mk"}, srv.KeyGroups())
}

func TestSubmitTransaction_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply *graphqlTest.Reply
		check func(t *testing.T, err error)
	}{
		{
			name:  "server error status",
			reply: &graphqlTest.Reply{Status: http.StatusBadGateway, Body: "bad gateway"},
			check: func(t *testing.T, err error) {
				var te *types.TransportError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, http.StatusBadGateway, te.StatusCode)
			},
		},
		{
			name:  "errors without data",
			reply: &graphqlTest.Reply{Body: `{"errors":[{"message":"invalid nonce"},{"message":"bad sig"}]}`},
			check: func(t *testing.T, err error) {
				var re *types.SubmissionRejectedError
				require.True(t, errors.As(err, &re))
				assert.Equal(t, "invalid nonce; bad sig", re.Message)
			},
		},
		{
			name:  "null data with errors",
			reply: &graphqlTest.Reply{Body: `{"data":null,"errors":[{"message":"nope"}]}`},
			check: func(t *testing.T, err error) {
				var re *types.SubmissionRejectedError
				assert.True(t, errors.As(err, &re))
			},
		},
		{
			name:  "null field with errors",
			reply: &graphqlTest.Reply{Body: `{"data":{"submitTransactionV1":null},"errors":[{"message":"nope"}]}`},
			check: func(t *testing.T, err error) {
				var re *types.SubmissionRejectedError
				assert.True(t, errors.As(err, &re))
			},
		},
		{
			name:  "empty body object",
			reply: &graphqlTest.Reply{Body: `{}`},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, types.ErrMalformedResponse)
			},
		},
		{
			name:  "missing field",
			reply: &graphqlTest.Reply{Body: `{"data":{}}`},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, types.ErrMalformedResponse)
			},
		},
		{
			name:  "missing id",
			reply: &graphqlTest.Reply{Body: `{"data":{"submitTransactionV1":{}}}`},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, types.ErrMalformedResponse)
			},
		},
		{
			name:  "not json",
			reply: &graphqlTest.Reply{Body: `<html>`},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, types.ErrMalformedResponse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := graphqlTest.NewServer(t, 0)
			srv.SetSubmitReply(tt.reply)
			c := newTestClient(t, srv)

			_, err := c.SubmitTransaction(context.Background(), "a", "b")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGetAccountNonce_Malformed(t *testing.T) {
	for _, body := range []string{
		`{"data":{"getAccountNonce":{}}}`,
		`{"data":{"getAccountNonce":{"nonce":-1}}}`,
		`{"data":{"getAccountNonce":{"nonce":1.5}}}`,
		`{"data":{"getAccountNonce":{"nonce":9223372036854775808}}}`,
	} {
		srv := graphqlTest.NewServer(t, 0)
		srv.SetNonceReply(&graphqlTest.Reply{Body: body})
		c := newTestClient(t, srv)

		_, err := c.GetAccountNonce(context.Background(), "kg")
		assert.ErrorIs(t, err, types.ErrMalformedResponse, body)
	}
}

func TestTransportFailure(t *testing.T) {
	c, err := NewClient(&Config{Endpoint: "http://127.0.0.1:1/graphql", Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.GetAccountNonce(context.Background(), "kg")
	var te *types.TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.StatusCode)
}

func TestCancelledContext(t *testing.T) {
	srv := graphqlTest.NewServer(t, 0)
	c := newTestClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SubmitTransaction(ctx, "a", "b")
	var te *types.TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, 0, srv.TotalCalls())
}
