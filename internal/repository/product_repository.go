package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// カテゴリと商品数（コレクションページ用）
type CategoryWithCount struct {
	model.Category
	ProductCount int64 `json:"product_count"`
}

// 商品の読み取りだけを約束。
// 絞り込み・並び替えは domain/catalog で行うので、ここでは全件を返す。
type ProductRepository interface {
	// 作成日時の新しい順、カテゴリ付き
	ListAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id string) (model.Product, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)
	ListFeatured(ctx context.Context, limit int) ([]model.Product, error)
}

type CategoryRepository interface {
	// 名前の昇順
	ListWithCounts(ctx context.Context) ([]CategoryWithCount, error)
}

// シード投入用の書き込み。管理画面のCRUDは持たない。
type CatalogWriter interface {
	DeleteAll(ctx context.Context) error
	CreateCategory(ctx context.Context, c model.Category) (model.Category, error)
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)
}
