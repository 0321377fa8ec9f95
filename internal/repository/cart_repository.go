package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// UpdateFunc は現在の明細を受け取り、保存する明細を返す。
// エラーを返したら保存しない。
type UpdateFunc func(items []model.CartLineItem) ([]model.CartLineItem, error)

// カートの永続スロット（1カートID = 1スロット）。
type CartRepository interface {
	// スロットが無ければ空の明細を返す（ErrNotFoundにはしない）
	Load(ctx context.Context, cartID string) ([]model.CartLineItem, error)

	// 読み込み→fn→保存をスロット単位で直列化して行う。保存後の明細を返す。
	Update(ctx context.Context, cartID string, fn UpdateFunc) ([]model.CartLineItem, error)

	Delete(ctx context.Context, cartID string) error
}
