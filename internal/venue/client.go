package venue

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/clobmm/engine/internal/domain"
	"github.com/clobmm/engine/pkg/config"
	"github.com/clobmm/engine/pkg/ratelimit"
)

// Client is the authenticated CLOB client: one signer, one set of derived
// credentials (lazily bootstrapped), and a rate-limited HTTP transport.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Manager
	base    string
	signer  *signer
	creds   *APIKeyCreds
}

func New(cfg config.VenueConfig, limiter *ratelimit.Manager) (*Client, error) {
	s, err := newSigner(cfg.PrivateSignerKey)
	if err != nil {
		return nil, err
	}
	http := resty.New().SetTimeout(10 * time.Second)
	return &Client{http: http, limiter: limiter, base: cfg.ClobURL, signer: s}, nil
}

// Address is the wallet address this client signs with.
func (c *Client) Address() string { return c.signer.Address() }

// Creds exposes the currently cached credentials, or nil if none have been
// derived yet.
func (c *Client) Creds() *APIKeyCreds { return c.creds }

type deriveAPIKeyResponse struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// DeriveOrCreateAPIKey implements the derive_creds control action: it tries
// to derive existing credentials first, and falls back to creating new ones
// if the venue reports none exist yet for this wallet.
func (c *Client) DeriveOrCreateAPIKey(ctx context.Context) (APIKeyCreds, error) {
	creds, err := c.deriveAPIKey(ctx)
	if err == nil {
		c.creds = &creds
		return creds, nil
	}

	creds, err = c.createAPIKey(ctx)
	if err != nil {
		return APIKeyCreds{}, fmt.Errorf("venue: derive and create both failed: %w", err)
	}
	c.creds = &creds
	return creds, nil
}

func (c *Client) deriveAPIKey(ctx context.Context) (APIKeyCreds, error) {
	return c.l1Request(ctx, "/auth/derive-api-key")
}

func (c *Client) createAPIKey(ctx context.Context) (APIKeyCreds, error) {
	return c.l1Request(ctx, "/auth/api-key")
}

func (c *Client) l1Request(ctx context.Context, path string) (APIKeyCreds, error) {
	headers, err := c.signer.l1Headers(0)
	if err != nil {
		return APIKeyCreds{}, err
	}

	var resp deriveAPIKeyResponse
	r, err := c.http.R().SetContext(ctx).SetHeaders(headers).SetResult(&resp).Get(c.base + path)
	if err != nil {
		return APIKeyCreds{}, err
	}
	if r.IsError() {
		return APIKeyCreds{}, fmt.Errorf("venue: %s returned %s", path, r.Status())
	}
	if resp.APIKey == "" {
		return APIKeyCreds{}, fmt.Errorf("venue: %s returned no api key", path)
	}
	return APIKeyCreds{APIKey: resp.APIKey, Secret: resp.Secret, Passphrase: resp.Passphrase}, nil
}

// EnsureCreds derives credentials if none are cached yet. PlaceGTC and every
// L2 call run it first; once credentials are cached it returns at once.
func (c *Client) EnsureCreds(ctx context.Context) error {
	if c.creds != nil {
		return nil
	}
	_, err := c.DeriveOrCreateAPIKey(ctx)
	return err
}

func (c *Client) doL2(ctx context.Context, endpoint, method, path string, body, out interface{}) error {
	if err := c.EnsureCreds(ctx); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return err
	}

	var bodyStr string
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("venue: marshal request body: %w", err)
		}
		bodyStr = string(b)
	}

	headers, err := l2Headers(*c.creds, c.signer.Address(), method, path, bodyStr)
	if err != nil {
		return err
	}

	req := c.http.R().SetContext(ctx).SetHeaders(headers)
	if bodyStr != "" {
		req = req.SetHeader("Content-Type", "application/json").SetBody(bodyStr)
	}
	if out != nil {
		req = req.SetResult(out)
	}

	var resp *resty.Response
	switch method {
	case "GET":
		resp, err = req.Get(c.base + path)
	case "POST":
		resp, err = req.Post(c.base + path)
	case "DELETE":
		resp, err = req.Delete(c.base + path)
	default:
		return fmt.Errorf("venue: unsupported method %s", method)
	}
	if err != nil {
		return fmt.Errorf("venue: %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("venue: %s %s returned %s: %s", method, path, resp.Status(), resp.String())
	}
	return nil
}

type bookLevelWire struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type orderBookWire struct {
	AssetID string          `json:"asset_id"`
	Bids    []bookLevelWire `json:"bids"`
	Asks    []bookLevelWire `json:"asks"`
}

// GetOrderBook fetches the current book for one token. Called once per
// candidate per cycle, not batched.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (OrderBook, error) {
	if err := c.limiter.Wait(ctx, "venue:book"); err != nil {
		return OrderBook{}, err
	}

	var wire orderBookWire
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&wire).
		Get(c.base + "/book")
	if err != nil {
		return OrderBook{}, fmt.Errorf("venue: get book: %w", err)
	}
	if resp.IsError() {
		return OrderBook{}, fmt.Errorf("venue: get book returned %s", resp.Status())
	}

	book := OrderBook{TokenID: tokenID}
	for _, l := range wire.Bids {
		book.Bids = append(book.Bids, wireToLevel(l))
	}
	for _, l := range wire.Asks {
		book.Asks = append(book.Asks, wireToLevel(l))
	}
	// CLOB convention is best-first-descending for bids, best-first-ascending
	// for asks, which is already the order the API returns them in. No
	// re-sort needed as long as that contract holds.
	return book, nil
}

func wireToLevel(l bookLevelWire) BookLevel {
	var p float64
	fmt.Sscanf(l.Price, "%f", &p)
	var s float64
	fmt.Sscanf(l.Size, "%f", &s)
	return BookLevel{Price: domain.PriceFromDecimal(p), Size: s}
}

type lastTradePriceWire struct {
	Price string `json:"price"`
}

// GetLastTradePrice fetches the venue's last executed trade price for one
// token, the fallback tier between a two-sided book and a one-sided book
// in the mid-price precedence (spec §4.2). Absence of a trade (empty or
// zero price) is not an error: callers fall through to the next tier.
func (c *Client) GetLastTradePrice(ctx context.Context, tokenID string) (domain.Price, bool, error) {
	if err := c.limiter.Wait(ctx, "venue:last-trade-price"); err != nil {
		return domain.Price{}, false, err
	}

	var wire lastTradePriceWire
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&wire).
		Get(c.base + "/last-trade-price")
	if err != nil {
		return domain.Price{}, false, fmt.Errorf("venue: get last trade price: %w", err)
	}
	if resp.IsError() {
		return domain.Price{}, false, fmt.Errorf("venue: get last trade price returned %s", resp.Status())
	}

	var p float64
	fmt.Sscanf(wire.Price, "%f", &p)
	if p <= 0 {
		return domain.Price{}, false, nil
	}
	return domain.PriceFromDecimal(p), true, nil
}

type openOrderWire struct {
	ID           string `json:"id"`
	AssetID      string `json:"asset_id"`
	Side         string `json:"side"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
}

type openOrdersResponse struct {
	Data []openOrderWire `json:"data"`
}

// GetOpenOrders returns every currently resting order for this wallet.
func (c *Client) GetOpenOrders(ctx context.Context) ([]domain.RestingOrder, error) {
	var resp openOrdersResponse
	if err := c.doL2(ctx, "venue:orders:get", "GET", "/orders", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.RestingOrder, 0, len(resp.Data))
	for _, o := range resp.Data {
		var price float64
		fmt.Sscanf(o.Price, "%f", &price)
		var size, filled float64
		fmt.Sscanf(o.OriginalSize, "%f", &size)
		fmt.Sscanf(o.SizeMatched, "%f", &filled)

		side := domain.SideBuy
		if o.Side == "SELL" {
			side = domain.SideSell
		}

		out = append(out, domain.RestingOrder{
			ID:      o.ID,
			AssetID: o.AssetID,
			Side:    side,
			Price:   domain.PriceFromDecimal(price),
			Size:    size - filled,
		})
	}
	return out, nil
}

type clobOrderBody struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          string `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderResponse struct {
	Success bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID string `json:"orderID"`
	Status  string `json:"status"`
}

// PlaceGTC signs and submits one good-till-cancelled limit order.
func (c *Client) PlaceGTC(ctx context.Context, tokenID string, side domain.Side, price domain.Price, size float64, opts PlaceOptions) (PlacedOrder, error) {
	if err := c.EnsureCreds(ctx); err != nil {
		return PlacedOrder{}, fmt.Errorf("venue: place order: %w", err)
	}

	signed, err := c.signer.buildSignedOrder(tokenID, side, price, size, opts)
	if err != nil {
		return PlacedOrder{}, fmt.Errorf("venue: place order: sign: %w", err)
	}

	sideStr := "BUY"
	if side == domain.SideSell {
		sideStr = "SELL"
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          signed.Order.Salt.String(),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       tokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          sideStr,
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     c.creds.APIKey,
		OrderType: "GTC",
	}

	var resp clobOrderResponse
	if err := c.doL2(ctx, "venue:orders:post", "POST", "/order", body, &resp); err != nil {
		return PlacedOrder{}, err
	}
	if !resp.Success || resp.ErrorMsg != "" {
		return PlacedOrder{}, fmt.Errorf("venue: place order rejected: %s", resp.ErrorMsg)
	}
	return PlacedOrder{OrderID: resp.OrderID, Status: resp.Status}, nil
}

// CancelOrder cancels a single resting order by its venue order id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.doL2(ctx, "venue:orders:delete", "DELETE", "/order/"+orderID, nil, nil)
}

// CancelAll cancels every resting order for this wallet.
func (c *Client) CancelAll(ctx context.Context) error {
	return c.doL2(ctx, "venue:orders:delete", "DELETE", "/orders", nil, nil)
}
