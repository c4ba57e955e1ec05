package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botfarm/internal/core"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, f ...interface{})               { fmt.Printf("DEBUG: %s %v\n", msg, f) }
func (m *mockLogger) Info(msg string, f ...interface{})                { fmt.Printf("INFO: %s %v\n", msg, f) }
func (m *mockLogger) Warn(msg string, f ...interface{})                { fmt.Printf("WARN: %s %v\n", msg, f) }
func (m *mockLogger) Error(msg string, f ...interface{})               { fmt.Printf("ERROR: %s %v\n", msg, f) }
func (m *mockLogger) Fatal(msg string, f ...interface{})               { fmt.Printf("FATAL: %s %v\n", msg, f) }
func (m *mockLogger) WithField(k string, v interface{}) core.ILogger   { return m }
func (m *mockLogger) WithFields(f map[string]interface{}) core.ILogger { return m }

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient("main", Config{
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
		Burst:             1000,
		Timeout:           5 * time.Second,
	}, &TokenSigner{Token: "test-token"}, &mockLogger{})
}

func TestClient_FetchInventoryPaged(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/inventory", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("start_assetid") == "" {
			fmt.Fprint(w, `{"assets":[{"assetid":1,"tradable":true},{"assetid":2,"tradable":false}],"more_items":true,"last_assetid":2}`)
			return
		}
		require.Equal(t, "2", r.URL.Query().Get("start_assetid"))
		fmt.Fprint(w, `{"assets":[{"assetid":3,"tradable":true}],"more_items":false}`)
	}))

	tradable := func(a *core.Asset) bool { return a.Tradable }
	assets, err := c.FetchInventory(context.Background(), 753, 6, tradable)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, uint64(1), assets[0].AssetID)
	assert.Equal(t, uint64(3), assets[1].AssetID)
}

func TestClient_GetConfirmations(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/mobileconf/list", r.URL.Path)
		fmt.Fprint(w, `{"confirmations":[{"id":10,"nonce":11,"creator_id":100,"type":2}]}`)
	}))

	confs, err := c.GetConfirmations(context.Background())
	require.NoError(t, err)
	require.Len(t, confs, 1)
	assert.Equal(t, uint64(100), confs[0].CreatorID)
	assert.Equal(t, core.ConfirmationTrade, confs[0].Type)
}

func TestClient_HandleConfirmations(t *testing.T) {
	var gotOp string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/mobileconf/multiajaxop", r.URL.Path)

		var req struct {
			Op     string   `json:"op"`
			IDs    []uint64 `json:"ids"`
			Nonces []uint64 `json:"nonces"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotOp = req.Op
		require.Equal(t, []uint64{10}, req.IDs)
		require.Equal(t, []uint64{11}, req.Nonces)

		fmt.Fprint(w, `{"success":true}`)
	}))

	confs := []*core.Confirmation{{ID: 10, Nonce: 11, CreatorID: 100, Type: core.ConfirmationTrade}}
	require.NoError(t, c.HandleConfirmations(context.Background(), confs, true))
	assert.Equal(t, "allow", gotOp)
}

func TestClient_HandleConfirmationsRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false}`)
	}))

	confs := []*core.Confirmation{{ID: 10, Nonce: 11}}
	err := c.HandleConfirmations(context.Background(), confs, false)
	require.Error(t, err)
}

func TestClient_SendTradeOfferBatches(t *testing.T) {
	var refids []string
	offerID := uint64(100)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tradeoffer/new", r.URL.Path)

		var req struct {
			Items       []*core.Asset `json:"items"`
			ClientRefID string        `json:"client_refid"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.ClientRefID)
		refids = append(refids, req.ClientRefID)

		offerID++
		needsConfirmation := offerID%2 == 0
		fmt.Fprintf(w, `{"tradeofferid":%d,"needs_mobile_confirmation":%t}`, offerID, needsConfirmation)
	}))

	items := []*core.Asset{{AssetID: 1}, {AssetID: 2}, {AssetID: 3}}
	result, err := c.SendTradeOffer(context.Background(), 76561198000000002, items, "token", "", 2)
	require.NoError(t, err)

	// 3 items at 2 per trade means 2 offers, with distinct refids.
	require.Len(t, result.OfferIDs, 2)
	require.Len(t, refids, 2)
	assert.NotEqual(t, refids[0], refids[1])

	// Only the offer flagged by the platform lands in the mobile set.
	require.Len(t, result.Mobile, 1)
	assert.Equal(t, uint64(102), result.Mobile[0])
}

func TestClient_GiftEndpoints(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/api/gifts/pending":
			fmt.Fprint(w, `{"gift_cards":[{"gift_card_id":7,"balance":"5.00","currency":"EUR"}]}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	}))

	ctx := context.Background()

	cards, err := c.GetDigitalGiftCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, uint64(7), cards[0].GiftCardID)
	assert.Equal(t, "5", cards[0].Balance.String())

	require.NoError(t, c.AcceptDigitalGiftCard(ctx, 7))
	require.NoError(t, c.AcceptGuestPass(ctx, 9))

	assert.Contains(t, paths, "/api/gifts/7/unpack")
	assert.Contains(t, paths, "/api/gifts/ackguestpass")
}

func TestClient_PlayGames(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/presence/play", r.URL.Path)

		var req struct {
			GameIDs  []uint32 `json:"game_ids"`
			GameName string   `json:"game_name"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, []uint32{440, 570}, req.GameIDs)
		require.Equal(t, "night shift", req.GameName)

		fmt.Fprint(w, `{}`)
	}))

	require.NoError(t, c.PlayGames(context.Background(), []uint32{440, 570}, "night shift"))
}
