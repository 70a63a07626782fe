package web3signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/vsc-eco/vsc-client-go/pkg/config"
	"go.uber.org/zap"
)

const (
	DefaultBaseUrl = "http://localhost:9000"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	BaseUrl string
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		BaseUrl: DefaultBaseUrl,
		Timeout: DefaultTimeout,
	}
}

type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
	requestId  atomic.Int64
}

type jsonRpcRequest struct {
	JsonRpc string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Id      int64         `json:"id"`
}

type jsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *jsonRpcError) Error() string {
	return fmt.Sprintf("web3signer rpc error %d: %s", e.Code, e.Message)
}

type jsonRpcResponse struct {
	JsonRpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonRpcError   `json:"error"`
	Id      int64           `json:"id"`
}

func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseUrl == "" {
		return nil, fmt.Errorf("web3signer base url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// NewWeb3SignerClientFromRemoteSignerConfig builds a client from the remote
// signer section of the client configuration. A nil config uses defaults.
func NewWeb3SignerClientFromRemoteSignerConfig(rsc *config.RemoteSignerConfig, logger *zap.Logger) (*Client, error) {
	cfg := DefaultConfig()
	if rsc != nil {
		if rsc.Url != "" {
			cfg.BaseUrl = rsc.Url
		}
		if rsc.Timeout > 0 {
			cfg.Timeout = rsc.Timeout
		}
	}
	return NewClient(cfg, logger)
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

func (c *Client) EthAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.call(ctx, "eth_accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *Client) EthSign(ctx context.Context, account string, data string) (string, error) {
	var sig string
	if err := c.call(ctx, "eth_sign", []interface{}{account, data}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

func (c *Client) HasAccount(ctx context.Context, account string) (bool, error) {
	accounts, err := c.EthAccounts(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range accounts {
		if strings.EqualFold(a, account) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(&jsonRpcRequest{
		JsonRpc: "2.0",
		Method:  method,
		Params:  params,
		Id:      c.requestId.Add(1),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.config.BaseUrl, "/"), bytes.NewReader(reqBody))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Sugar().Debugw("Sending web3signer request", "method", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s request failed", method)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rpcResp jsonRpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("%s returned no result", method)
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s result", method)
	}
	return nil
}
