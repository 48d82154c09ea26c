// Package client talks to the launchpad API for one collection.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/AmentiAI/solmaker-sub001/common/errors"
	"github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"go.uber.org/zap"
)

// Client communicates with the launchpad API via HTTP.
type Client struct {
	baseURL      string
	collectionID string
	httpClient   *http.Client
	log          *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client for collectionID rooted at baseURL.
func New(baseURL, collectionID string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		collectionID: collectionID,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectionID returns the collection this client is bound to.
func (c *Client) CollectionID() string { return c.collectionID }

func (c *Client) endpoint(path string, query url.Values) string {
	u := fmt.Sprintf("%s/api/launchpad/%s%s", c.baseURL, url.PathEscape(c.collectionID), path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Collection fetches the collection with its phases.
func (c *Client) Collection(ctx context.Context) (*models.Collection, error) {
	var out models.Collection
	if err := c.do(ctx, http.MethodGet, c.endpoint("", nil), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Poll fetches the live counters. walletAddress may be empty.
func (c *Client) Poll(ctx context.Context, walletAddress string) (*models.PollResponse, error) {
	q := url.Values{}
	if walletAddress != "" {
		q.Set("walletAddress", walletAddress)
	}
	var out models.PollResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("/poll", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrdinals fetches one page of inventory.
func (c *Client) ListOrdinals(ctx context.Context, page, perPage int) (*models.OrdinalsPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	var out models.OrdinalsPage
	if err := c.do(ctx, http.MethodGet, c.endpoint("/ordinals", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reserve asks the server to lock ordinals for the wallet.
func (c *Client) Reserve(ctx context.Context, req models.ReserveRequest) (*models.ReserveResponse, error) {
	var out models.ReserveResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("/reserve", nil), req, &out); err != nil {
		return nil, err
	}
	c.log.Info("ordinals reserved",
		zap.String("wallet", req.WalletAddress),
		zap.Int("granted", len(out.Granted())))
	return &out, nil
}

// Release drops the wallet's lock on itemID.
func (c *Client) Release(ctx context.Context, walletAddress, itemID string) error {
	q := url.Values{}
	q.Set("walletAddress", walletAddress)
	q.Set("itemId", itemID)
	if err := c.do(ctx, http.MethodDelete, c.endpoint("/reserve", q), nil, nil); err != nil {
		return err
	}
	c.log.Info("ordinal released", zap.String("wallet", walletAddress), zap.String("item_id", itemID))
	return nil
}

// BuildMint requests an unsigned mint transaction.
func (c *Client) BuildMint(ctx context.Context, req models.BuildMintRequest) (*models.BuildMintResponse, error) {
	var out models.BuildMintResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("/mint/build", nil), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmMint reports a broadcast signature to the server.
func (c *Client) ConfirmMint(ctx context.Context, req models.ConfirmMintRequest) (*models.ConfirmMintResponse, error) {
	var out models.ConfirmMintResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("/mint/confirm", nil), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmStatus polls the confirmation state of signature.
func (c *Client) ConfirmStatus(ctx context.Context, signature string) (*models.ConfirmMintResponse, error) {
	q := url.Values{}
	q.Set("signature", signature)
	var out models.ConfirmMintResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("/mint/confirm", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WhitelistStatus fetches the wallet's whitelist view for phaseID.
func (c *Client) WhitelistStatus(ctx context.Context, walletAddress, phaseID string) (*models.WhitelistStatus, error) {
	q := url.Values{}
	q.Set("walletAddress", walletAddress)
	q.Set("phaseId", phaseID)
	var out models.WhitelistStatus
	if err := c.do(ctx, http.MethodGet, c.endpoint("/whitelist-status", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("launchpad %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		errMsg, _ := errResp["error"].(string)
		if errMsg == "" {
			errMsg = fmt.Sprintf("launchpad service returned %d", resp.StatusCode)
		}
		c.log.Debug("launchpad request rejected",
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.String("error", errMsg))
		return apperrors.New(resp.StatusCode, errMsg, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode launchpad response: %w", err)
	}
	return nil
}
