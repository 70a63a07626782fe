// Package graphql talks to the GraphQL endpoint of a VSC node.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vsc-eco/vsc-client-go/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	submitTransactionQuery = `query SubmitTx($sig: String!, $tx: String!) { submitTransactionV1(sig: $sig, tx: $tx) { id } }`
	accountNonceQuery      = `query SubmitTx($keyGroup: [String]!) { getAccountNonce(keyGroup: $keyGroup) { nonce } }`

	DefaultTimeout = 30 * time.Second
)

// IGraphQLClient is the node API used to broadcast transactions.
type IGraphQLClient interface {
	SubmitTransaction(ctx context.Context, tx, sig string) (*SubmitResult, error)
	GetAccountNonce(ctx context.Context, keyGroup string) (uint64, error)
}

var _ IGraphQLClient = (*Client)(nil)

type Config struct {
	// Endpoint is the full GraphQL URL, e.g. https://api.vsc.eco/api/v1/graphql
	Endpoint   string
	HttpClient *http.Client
	Logger     *zap.Logger
	// RequestsPerSecond limits outgoing requests; zero means unlimited.
	RequestsPerSecond float64
	Timeout           time.Duration
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type SubmitResult struct {
	Id string `json:"id"`
}

type request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests per second must not be negative")
	}

	httpClient := cfg.HttpClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// SubmitTransaction posts a signed transaction. tx and sig are base64url text.
func (c *Client) SubmitTransaction(ctx context.Context, tx, sig string) (*SubmitResult, error) {
	var data struct {
		SubmitTransactionV1 *SubmitResult `json:"submitTransactionV1"`
	}
	errs, err := c.do(ctx, submitTransactionQuery, map[string]interface{}{"tx": tx, "sig": sig}, &data)
	if err != nil {
		return nil, err
	}
	if data.SubmitTransactionV1 == nil {
		if len(errs) > 0 {
			return nil, rejected(errs)
		}
		return nil, fmt.Errorf("%w: submitTransactionV1 missing", types.ErrMalformedResponse)
	}
	if data.SubmitTransactionV1.Id == "" {
		return nil, fmt.Errorf("%w: submitTransactionV1.id missing", types.ErrMalformedResponse)
	}
	return data.SubmitTransactionV1, nil
}

// GetAccountNonce returns the next nonce the network expects for keyGroup.
func (c *Client) GetAccountNonce(ctx context.Context, keyGroup string) (uint64, error) {
	var data struct {
		GetAccountNonce *struct {
			Nonce *json.Number `json:"nonce"`
		} `json:"getAccountNonce"`
	}
	errs, err := c.do(ctx, accountNonceQuery, map[string]interface{}{"keyGroup": []string{keyGroup}}, &data)
	if err != nil {
		return 0, err
	}
	if data.GetAccountNonce == nil || data.GetAccountNonce.Nonce == nil {
		if len(errs) > 0 {
			return 0, rejected(errs)
		}
		return 0, fmt.Errorf("%w: getAccountNonce.nonce missing", types.ErrMalformedResponse)
	}
	nonce, err := strconv.ParseUint(data.GetAccountNonce.Nonce.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid nonce %q", types.ErrMalformedResponse, data.GetAccountNonce.Nonce.String())
	}
	if nonce > types.MaxNonce {
		return 0, fmt.Errorf("%w: nonce %d exceeds %d", types.ErrMalformedResponse, nonce, types.MaxNonce)
	}
	return nonce, nil
}

// do posts a query and decodes data into out. A response without data is an
// error; GraphQL errors accompanying data are returned for the caller to judge.
func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) ([]gqlError, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &types.TransportError{Err: err}
	}

	body, err := json.Marshal(&request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &types.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	c.logger.Sugar().Debugw("GraphQL request completed",
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &types.TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(respBody))),
		}
	}

	var gqlResp response
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedResponse, err)
	}
	if len(gqlResp.Data) == 0 || string(gqlResp.Data) == "null" {
		if len(gqlResp.Errors) > 0 {
			return nil, rejected(gqlResp.Errors)
		}
		return nil, fmt.Errorf("%w: no data", types.ErrMalformedResponse)
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedResponse, err)
	}
	return gqlResp.Errors, nil
}

func rejected(errs []gqlError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return &types.SubmissionRejectedError{Message: strings.Join(msgs, "; ")}
}
