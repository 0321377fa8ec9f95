package model

import (
	"math"
	"time"
)

// カートの明細
// 表示に必要な商品情報は追加時点のスナップショットを持つ。
type CartLineItem struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	DiscountPrice *int64 `json:"discount_price,omitempty"`
	Image         string `json:"image"`
	Category      string `json:"category"`
	Slug          string `json:"slug"`
	// 在庫クランプ用（STOCK_POLICY=clamp のときだけ使う）
	Stock    int64 `json:"stock"`
	Quantity int64 `json:"quantity"`
}

func (i CartLineItem) EffectivePrice() int64 {
	if i.DiscountPrice != nil && *i.DiscountPrice > 0 {
		return *i.DiscountPrice
	}
	return i.Price
}

// 単価×数量。int64を超える場合は上限で止める。
func (i CartLineItem) LineTotal() int64 {
	price := i.EffectivePrice()
	if price > 0 && i.Quantity > 0 && price > math.MaxInt64/i.Quantity {
		return math.MaxInt64
	}
	return price * i.Quantity
}

// カートの永続スロット。1カートID = 1行。
type CartSession struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	Items     []CartLineItem `gorm:"type:jsonb;serializer:json;not null" json:"items"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
