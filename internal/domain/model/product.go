package model

import (
	"time"

	"github.com/lib/pq"
)

// カテゴリ未設定の商品に表示するラベル
const UncategorizedLabel = "Uncategorized"

type Category struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Image       *string   `gorm:"type:text" json:"image,omitempty"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 価格は最小通貨単位（USDならセント）。
type Product struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug          string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description   string         `gorm:"type:text" json:"description"`
	Price         int64          `gorm:"not null" json:"price"`
	DiscountPrice *int64         `json:"discount_price,omitempty"`
	Stock         int64          `gorm:"not null;default:0" json:"stock"`
	CategoryID    *string        `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category      *Category      `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	IsFeatured    bool           `gorm:"not null;default:false" json:"is_featured"`
	IsNew         bool           `gorm:"not null;default:false" json:"is_new"`
	SKU           *string        `gorm:"type:varchar(100)" json:"sku,omitempty"`
	Images        pq.StringArray `gorm:"type:text[];not null" json:"images"`
	Features      pq.StringArray `gorm:"type:text[]" json:"features"`
	Details       map[string]any `gorm:"type:jsonb;serializer:json" json:"details,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// EffectivePrice は実際に請求する単価。
// 割引価格が無い（nil または 0）ときは通常価格。
func (p Product) EffectivePrice() int64 {
	if p.DiscountPrice != nil && *p.DiscountPrice > 0 {
		return *p.DiscountPrice
	}
	return p.Price
}

func (p Product) CategoryName() string {
	if p.Category == nil || p.Category.Name == "" {
		return UncategorizedLabel
	}
	return p.Category.Name
}

func (p Product) CategorySlug() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.Slug
}

// 一覧用の先頭画像
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
