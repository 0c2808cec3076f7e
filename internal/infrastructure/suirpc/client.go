package suirpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"ptbscope/internal/domain"
	"ptbscope/internal/movetype"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Client talks to a Sui fullnode over JSON-RPC.
type Client struct {
	url        string
	httpClient *http.Client
	idCounter  uint64
}

type Config struct {
	URL     string
	Timeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rpc url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// MoveFunctionSignature fetches the declared parameter and return types of
// pkg::module::function. Types may still reference type parameters.
func (c *Client) MoveFunctionSignature(ctx context.Context, pkg, module, function string) (*domain.Signature, error) {
	ctx, span := otel.Tracer("ptbscope/suirpc").Start(ctx, "sui_getNormalizedMoveFunction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("move.package", pkg),
			attribute.String("move.module", module),
			attribute.String("move.function", function),
		),
	)
	defer span.End()

	var result normalizedFunction
	if err := c.call(ctx, "sui_getNormalizedMoveFunction", []any{movetype.NormalizeAddress(pkg), module, function}, &result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &domain.Signature{
		Parameters: movetype.NormalizeAll(result.Parameters),
		Returns:    movetype.NormalizeAll(result.Return),
	}, nil
}

// Ping issues a cheap call to check the node is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var checkpoint string
	return c.call(ctx, "sui_getLatestCheckpointSequenceNumber", []any{}, &checkpoint)
}

type normalizedFunction struct {
	Visibility     string            `json:"visibility"`
	IsEntry        bool              `json:"isEntry"`
	TypeParameters []json.RawMessage `json:"typeParameters"`
	Parameters     []json.RawMessage `json:"parameters"`
	Return         []json.RawMessage `json:"return"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	id := atomic.AddUint64(&c.idCounter, 1)
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return err
	}
	if decoded.Error != nil {
		return fmt.Errorf("rpc error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if result == nil {
		return nil
	}
	if len(decoded.Result) == 0 || bytes.Equal(decoded.Result, []byte("null")) {
		return errors.New("rpc result is empty")
	}
	return json.Unmarshal(decoded.Result, result)
}
