// Package remote implements the remote-platform collaborators: the web
// API client and the event-stream session.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"botfarm/internal/core"
	apphttp "botfarm/pkg/http"
	"botfarm/pkg/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Client implements core.IRemoteClient over the platform's web API.
// All requests share a steady-state pacer on top of the HTTP layer's
// retry/breaker pipeline.
type Client struct {
	account string
	http    *apphttp.Client
	pacer   *rate.Limiter
	logger  core.ILogger
	tracer  trace.Tracer
}

// Config holds the remote client settings.
type Config struct {
	BaseURL           string
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// NewClient creates a web API client for one account.
func NewClient(account string, cfg Config, signer apphttp.Signer, logger core.ILogger) *Client {
	return &Client{
		account: account,
		http:    apphttp.NewClient(cfg.BaseURL, cfg.Timeout, signer),
		pacer:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger.WithField("component", "remote_client").WithField("account", account),
		tracer:  telemetry.GetTracer("remote-client"),
	}
}

type inventoryPage struct {
	Assets       []*core.Asset `json:"assets"`
	MoreItems    bool          `json:"more_items"`
	LastAssetID  uint64        `json:"last_assetid"`
	TotalEntries int           `json:"total_inventory_count"`
}

// FetchInventory retrieves the account's inventory page by page and
// applies the caller's filter. A nil filter matches everything.
func (c *Client) FetchInventory(ctx context.Context, appID uint32, contextID uint64, filter core.AssetFilter) ([]*core.Asset, error) {
	ctx, span := c.tracer.Start(ctx, "FetchInventory",
		trace.WithAttributes(
			attribute.Int64("app_id", int64(appID)),
			attribute.Int64("context_id", int64(contextID)),
		),
	)
	defer span.End()

	var result []*core.Asset
	var startAssetID uint64

	for {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}

		params := map[string]string{
			"appid":     fmt.Sprintf("%d", appID),
			"contextid": fmt.Sprintf("%d", contextID),
		}
		if startAssetID > 0 {
			params["start_assetid"] = fmt.Sprintf("%d", startAssetID)
		}

		body, err := c.http.Get(ctx, "/api/inventory", params)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		var page inventoryPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode inventory page: %w", err)
		}

		for _, asset := range page.Assets {
			if filter == nil || filter(asset) {
				result = append(result, asset)
			}
		}

		if !page.MoreItems {
			return result, nil
		}
		startAssetID = page.LastAssetID
	}
}

// GetConfirmations fetches the full pending-confirmation set.
func (c *Client) GetConfirmations(ctx context.Context) ([]*core.Confirmation, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.http.Get(ctx, "/api/mobileconf/list", nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Confirmations []*core.Confirmation `json:"confirmations"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode confirmations: %w", err)
	}

	return response.Confirmations, nil
}

// HandleConfirmations commits one accept/decline batch.
func (c *Client) HandleConfirmations(ctx context.Context, confirmations []*core.Confirmation, accept bool) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	op := "cancel"
	if accept {
		op = "allow"
	}

	ids := make([]uint64, 0, len(confirmations))
	nonces := make([]uint64, 0, len(confirmations))
	for _, confirmation := range confirmations {
		ids = append(ids, confirmation.ID)
		nonces = append(nonces, confirmation.Nonce)
	}

	request := map[string]interface{}{
		"op":     op,
		"ids":    ids,
		"nonces": nonces,
	}

	body, err := c.http.Post(ctx, "/api/mobileconf/multiajaxop", request)
	if err != nil {
		return err
	}

	var response struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("failed to decode confirmation response: %w", err)
	}
	if !response.Success {
		return fmt.Errorf("remote rejected confirmation batch of %d", len(confirmations))
	}

	return nil
}

type tradeOfferResponse struct {
	OfferID           uint64 `json:"tradeofferid"`
	NeedsConfirmation bool   `json:"needs_mobile_confirmation"`
}

// SendTradeOffer submits items to targetID, splitting into batches of at
// most itemsPerTrade. Each batch carries a unique client reference so a
// retried request is never interpreted as a second offer.
func (c *Client) SendTradeOffer(ctx context.Context, targetID uint64, items []*core.Asset, token string, message string, itemsPerTrade int) (*core.TradeOfferResult, error) {
	ctx, span := c.tracer.Start(ctx, "SendTradeOffer",
		trace.WithAttributes(attribute.Int("items", len(items))),
	)
	defer span.End()

	if itemsPerTrade <= 0 {
		itemsPerTrade = len(items)
	}

	result := &core.TradeOfferResult{}
	for start := 0; start < len(items); start += itemsPerTrade {
		end := min(start+itemsPerTrade, len(items))

		if err := c.pacer.Wait(ctx); err != nil {
			return result, err
		}

		request := map[string]interface{}{
			"partner":      targetID,
			"trade_token":  token,
			"message":      message,
			"items":        items[start:end],
			"client_refid": uuid.NewString(),
		}

		body, err := c.http.Post(ctx, "/api/tradeoffer/new", request)
		if err != nil {
			span.RecordError(err)
			return result, err
		}

		var response tradeOfferResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return result, fmt.Errorf("failed to decode trade offer response: %w", err)
		}

		result.OfferIDs = append(result.OfferIDs, response.OfferID)
		if response.NeedsConfirmation {
			result.Mobile = append(result.Mobile, response.OfferID)
		}
	}

	c.logger.Info("Trade offers submitted", "target", targetID, "offers", len(result.OfferIDs))
	return result, nil
}

// GetDigitalGiftCards lists pending digital gift cards.
func (c *Client) GetDigitalGiftCards(ctx context.Context) ([]*core.GiftCard, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.http.Get(ctx, "/api/gifts/pending", nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		GiftCards []*core.GiftCard `json:"gift_cards"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode gift cards: %w", err)
	}

	return response.GiftCards, nil
}

// AcceptDigitalGiftCard redeems one pending gift card.
func (c *Client) AcceptDigitalGiftCard(ctx context.Context, giftCardID uint64) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	_, err := c.http.Post(ctx, fmt.Sprintf("/api/gifts/%d/unpack", giftCardID), nil)
	return err
}

// AcceptGuestPass redeems one guest pass.
func (c *Client) AcceptGuestPass(ctx context.Context, guestPassID uint64) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	request := map[string]interface{}{
		"guest_pass_id": guestPassID,
	}
	_, err := c.http.Post(ctx, "/api/gifts/ackguestpass", request)
	return err
}

// PlayGames switches the account's presence to the given games.
func (c *Client) PlayGames(ctx context.Context, gameIDs []uint32, gameName string) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	request := map[string]interface{}{
		"game_ids":  gameIDs,
		"game_name": gameName,
	}
	_, err := c.http.Post(ctx, "/api/presence/play", request)
	return err
}
