package cart

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pgcportal/portal/api"
	"github.com/shopspring/decimal"
)

// Entry is one cart line.
type Entry struct {
	SKU      api.SKU `json:"sku"`
	Quantity int     `json:"quantity"`
}

// storedSKU mirrors api.SKU with optional fields so missing members can be
// told apart from zero values.
type storedSKU struct {
	ID             *float64         `json:"id"`
	CategoryID     *float64         `json:"category_id"`
	Brand          *string          `json:"brand"`
	Model          *string          `json:"model"`
	Spec           *string          `json:"spec"`
	ReferencePrice *decimal.Decimal `json:"reference_price"`
	CoverURL       *string          `json:"cover_url"`
	Status         *string          `json:"status"`
	AvailableStock *float64         `json:"available_stock"`
}

type storedEntry struct {
	SKU      *storedSKU `json:"sku"`
	Quantity *float64   `json:"quantity"`
}

// Encode renders items in the stored format, a JSON object keyed by SKU ID.
func Encode(items map[int64]Entry) (string, error) {
	out := make(map[string]Entry, len(items))
	for id, e := range items {
		out[strconv.FormatInt(id, 10)] = e
	}
	buf, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Decode parses a stored payload. Invalid entries are dropped; an unparsable
// payload yields an empty map. The second result counts dropped entries.
func Decode(payload string) (map[int64]Entry, int) {
	items := make(map[int64]Entry)
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return items, 0
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return items, 1
	}

	dropped := 0
	for key, msg := range raw {
		e, ok := decodeEntry(key, msg)
		if !ok {
			dropped++
			continue
		}
		items[e.SKU.ID] = e
	}
	return items, dropped
}

func decodeEntry(key string, msg json.RawMessage) (Entry, bool) {
	var se storedEntry
	if err := json.Unmarshal(msg, &se); err != nil {
		return Entry{}, false
	}
	if se.SKU == nil || se.Quantity == nil {
		return Entry{}, false
	}

	id, ok := wholeNumber(se.SKU.ID)
	if !ok || id <= 0 {
		return Entry{}, false
	}
	if key != strconv.FormatInt(id, 10) {
		return Entry{}, false
	}
	qty, ok := wholeNumber(se.Quantity)
	if !ok || qty <= 0 || qty > math.MaxInt32 {
		return Entry{}, false
	}
	stock, ok := wholeNumber(se.SKU.AvailableStock)
	if !ok || stock < 0 || stock > math.MaxInt32 {
		return Entry{}, false
	}

	sku := api.SKU{ID: id, AvailableStock: int(stock)}
	if cat, ok := wholeNumber(se.SKU.CategoryID); ok {
		sku.CategoryID = cat
	}
	sku.Brand = deref(se.SKU.Brand)
	sku.Model = deref(se.SKU.Model)
	sku.Spec = deref(se.SKU.Spec)
	sku.CoverURL = deref(se.SKU.CoverURL)
	sku.Status = deref(se.SKU.Status)
	if se.SKU.ReferencePrice != nil {
		if se.SKU.ReferencePrice.IsNegative() {
			return Entry{}, false
		}
		sku.ReferencePrice = *se.SKU.ReferencePrice
	}

	return Entry{SKU: sku, Quantity: int(qty)}, true
}

func wholeNumber(v *float64) (int64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v != math.Trunc(*v) {
		return 0, false
	}
	if *v > math.MaxInt64/2 || *v < math.MinInt64/2 {
		return 0, false
	}
	return int64(*v), true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
