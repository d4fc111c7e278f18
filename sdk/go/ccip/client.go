// Package ccip is a small HTTP client for the ccipd API together with a
// status poller that follows a transfer until it settles.
package ccip

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Status mirrors the registry status of a transfer.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusTimeout    Status = "timeout"
)

// Terminal reports whether a poller should stop on this status.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError || s == StatusTimeout
}

// Client wraps the HTTP interactions with the ccipd REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// TransferOptions overrides execution parameters for a single transfer.
type TransferOptions struct {
	FeeToken                 string  `json:"feeToken,omitempty"`
	GasLimit                 *uint64 `json:"gasLimit,omitempty"`
	AllowOutOfOrderExecution *bool   `json:"allowOutOfOrderExecution,omitempty"`
}

// TransferRequest is the intent submitted to the API. Amount is an integer
// in the token's smallest unit.
type TransferRequest struct {
	SourceChain      string           `json:"sourceChain"`
	DestinationChain string           `json:"destinationChain"`
	TokenIdentifier  string           `json:"tokenIdentifier"`
	Amount           string           `json:"amount"`
	ReceiverAddress  string           `json:"receiverAddress,omitempty"`
	Options          *TransferOptions `json:"options,omitempty"`
}

// SubmitResult carries the correlation id of an accepted transfer.
type SubmitResult struct {
	CorrelationID string `json:"correlationId"`
	TransferID    string `json:"transferId"`
	Status        Status `json:"status"`
	Message       string `json:"message,omitempty"`
}

// Transfer is the status record returned by the API.
type Transfer struct {
	ID               string `json:"id"`
	Status           Status `json:"status"`
	Message          string `json:"message,omitempty"`
	Route            string `json:"route,omitempty"`
	TokenMint        string `json:"tokenMint,omitempty"`
	OnChainMessageID string `json:"onChainMessageId,omitempty"`
	TxSignature      string `json:"txSignature,omitempty"`
	ExplorerURL      string `json:"explorerUrl,omitempty"`
	Logs             string `json:"logs,omitempty"`
	ErrorCode        string `json:"errorCode,omitempty"`
	CreatedAt        int64  `json:"createdAt"`
	UpdatedAt        int64  `json:"updatedAt"`
}

// Stats summarises registry contents.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Success    int `json:"success"`
	Error      int `json:"error"`
	Timeout    int `json:"timeout"`
}

// TransferList is a page of transfers.
type TransferList struct {
	Transfers []Transfer `json:"transfers"`
	Stats     Stats      `json:"stats"`
}

// ListQuery filters ListTransfers.
type ListQuery struct {
	Statuses []Status
	Limit    int
	Offset   int
	Query    string
}

// Chain is an entry of the chain-selector table.
type Chain struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases,omitempty"`
	Family   string   `json:"family"`
	Selector uint64   `json:"selector,string"`
	ChainID  string   `json:"chainId,omitempty"`
	Tokens   []Token  `json:"tokens,omitempty"`
}

// Token is a transferable token on a source chain.
type Token struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals uint8  `json:"decimals"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	// TransferID is set when the server registered the transfer before failing.
	TransferID string `json:"transferId,omitempty"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("ccip api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("ccip api error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is the API's not-found answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// NewClient instantiates a client for the API at rawURL. When httpClient is
// nil, a default client with DefaultHTTPTimeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", rawURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// SubmitTransfer posts an intent and returns its correlation id.
func (c *Client) SubmitTransfer(ctx context.Context, req TransferRequest) (SubmitResult, error) {
	var result SubmitResult
	if err := c.post(ctx, "/api/v1/transfers", req, &result); err != nil {
		return SubmitResult{}, err
	}
	if result.CorrelationID == "" {
		result.CorrelationID = result.TransferID
	}
	return result, nil
}

// GetTransfer fetches the current status record.
func (c *Client) GetTransfer(ctx context.Context, id string) (*Transfer, error) {
	switch strings.TrimSpace(id) {
	case "":
		return nil, errors.New("ccip: transfer id is empty")
	case ".", "..":
		return nil, fmt.Errorf("ccip: invalid transfer id %q", id)
	}
	var transfer Transfer
	if err := c.get(ctx, "/api/v1/transfers/"+url.PathEscape(id), nil, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// ListTransfers returns recent transfers.
func (c *Client) ListTransfers(ctx context.Context, q ListQuery) (TransferList, error) {
	values := url.Values{}
	if len(q.Statuses) > 0 {
		parts := make([]string, 0, len(q.Statuses))
		for _, status := range q.Statuses {
			parts = append(parts, string(status))
		}
		values.Set("status", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Query != "" {
		values.Set("q", q.Query)
	}
	var list TransferList
	if err := c.get(ctx, "/api/v1/transfers", values, &list); err != nil {
		return TransferList{}, err
	}
	return list, nil
}

// ListChains returns the server's chain-selector table.
func (c *Client) ListChains(ctx context.Context) ([]Chain, error) {
	var body struct {
		Chains []Chain `json:"chains"`
	}
	if err := c.get(ctx, "/api/v1/chains", nil, &body); err != nil {
		return nil, err
	}
	return body.Chains, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, query, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader) (*http.Request, error) {
	// endpoint is already escaped; keep RawPath so escaped ids stay one segment.
	rawPath := strings.TrimRight(c.baseURL.EscapedPath(), "/") + endpoint
	decoded, err := url.PathUnescape(rawPath)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	u := *c.baseURL
	u.Path, u.RawPath = decoded, rawPath
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &struct {
				Error *APIError `json:"error"`
			}{Error: apiErr})
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
