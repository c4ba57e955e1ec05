package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConfirmationType identifies the kind of pending mobile confirmation.
type ConfirmationType uint8

const (
	ConfirmationUnknown ConfirmationType = iota
	ConfirmationGeneric
	ConfirmationTrade
	ConfirmationMarket
)

func (t ConfirmationType) String() string {
	switch t {
	case ConfirmationGeneric:
		return "generic"
	case ConfirmationTrade:
		return "trade"
	case ConfirmationMarket:
		return "market"
	default:
		return "unknown"
	}
}

// Asset is a single inventory item belonging to an account.
type Asset struct {
	AppID      uint32 `json:"appid"`
	ContextID  uint64 `json:"contextid"`
	AssetID    uint64 `json:"assetid"`
	ClassID    uint64 `json:"classid"`
	InstanceID uint64 `json:"instanceid"`
	Amount     uint32 `json:"amount"`
	Tradable   bool   `json:"tradable"`
	Marketable bool   `json:"marketable"`
}

// Confirmation is a pending remote approval request. Instances are
// immutable once fetched; each poll fetches a fresh set.
type Confirmation struct {
	ID        uint64           `json:"id"`
	Nonce     uint64           `json:"nonce"`
	CreatorID uint64           `json:"creator_id"`
	Type      ConfirmationType `json:"type"`
}

// GiftCard is a pending digital gift card waiting to be accepted.
type GiftCard struct {
	GiftCardID uint64          `json:"gift_card_id"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
}

// TradeOfferResult is the outcome of submitting one logical trade offer,
// possibly split into multiple batches by the remote client.
type TradeOfferResult struct {
	OfferIDs []uint64 // all offers created
	Mobile   []uint64 // subset that still needs mobile confirmation
}

// Result is the outcome tuple every externally exposed action returns.
// Message is always human readable; remote errors never escape as faults.
type Result struct {
	Success bool
	Message string
}

// OK builds a successful result.
func OK(format string, args ...interface{}) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

// Fail builds a failed result.
func Fail(format string, args ...interface{}) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}
