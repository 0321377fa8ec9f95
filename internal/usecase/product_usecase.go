package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// おすすめ商品の最大件数
const featuredLimit = 10

type ProductUsecase struct {
	productRepo  repo.ProductRepository
	categoryRepo repo.CategoryRepository
	currency     currency.Unit
	log          *zap.Logger
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	categoryRepo repo.CategoryRepository,
	cur currency.Unit,
	log *zap.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		currency:     cur,
		log:          log,
	}
}

// GET /productsの入力DTO（クエリ文字列そのまま）
type ListProductsInput struct {
	Category string
	MinPrice string
	MaxPrice string
	Sort     string
	Page     int
	Limit    int
}

type ProductOutput struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Slug           string         `json:"slug"`
	Description    string         `json:"description"`
	Price          int64          `json:"price"`
	DiscountPrice  *int64         `json:"discount_price,omitempty"`
	EffectivePrice int64          `json:"effective_price"`
	PriceDisplay   string         `json:"price_display"`
	Stock          int64          `json:"stock"`
	Category       string         `json:"category"`
	CategorySlug   string         `json:"category_slug,omitempty"`
	IsFeatured     bool           `json:"is_featured"`
	IsNew          bool           `json:"is_new"`
	SKU            *string        `json:"sku,omitempty"`
	Images         []string       `json:"images"`
	Features       []string       `json:"features"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// 適用された条件（UIの選択状態に使う）
type AppliedFilter struct {
	Category string `json:"category"`
	MinPrice int64  `json:"min_price"`
	MaxPrice *int64 `json:"max_price,omitempty"`
	Sort     string `json:"sort"`
}

type ProductListOutput struct {
	Items      []ProductOutput `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Categories []string        `json:"categories"`
	Filter     AppliedFilter   `json:"filter"`
}

// ListProducts は全商品を取得し、絞り込み・並び替え・ページングして返す。
// 条件が読めない場合は既定値にするのでエラーにはしない。
func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	all, err := u.productRepo.ListAll(ctx)
	if err != nil {
		u.log.Error("list products", zap.Error(err))
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	q := catalog.ParseFilterQuery(catalog.RawQuery{
		Category: in.Category,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	filtered := catalog.Apply(all, q)
	page, p, limit := catalog.Paginate(filtered, in.Page, in.Limit)

	applied := AppliedFilter{
		Category: q.Category,
		MinPrice: q.MinPrice,
		Sort:     string(q.Sort),
	}
	if q.MaxPrice != catalog.NoMaxPrice {
		maxPrice := q.MaxPrice
		applied.MaxPrice = &maxPrice
	}

	return ProductListOutput{
		Items:      u.toOutputs(page),
		Total:      len(filtered),
		Page:       p,
		Limit:      limit,
		Categories: catalog.Categories(all),
		Filter:     applied,
	}, nil
}

func (u *ProductUsecase) GetProductBySlug(ctx context.Context, slug string) (ProductOutput, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	p, err := u.productRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		u.log.Error("find product by slug", zap.String("slug", slug), zap.Error(err))
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.toOutput(p), nil
}

func (u *ProductUsecase) ListFeatured(ctx context.Context) ([]ProductOutput, error) {
	items, err := u.productRepo.ListFeatured(ctx, featuredLimit)
	if err != nil {
		u.log.Error("list featured products", zap.Error(err))
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.toOutputs(items), nil
}

func (u *ProductUsecase) ListCategories(ctx context.Context) ([]repo.CategoryWithCount, error) {
	cats, err := u.categoryRepo.ListWithCounts(ctx)
	if err != nil {
		u.log.Error("list categories", zap.Error(err))
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if cats == nil {
		cats = []repo.CategoryWithCount{}
	}
	return cats, nil
}

func (u *ProductUsecase) toOutputs(products []model.Product) []ProductOutput {
	out := make([]ProductOutput, 0, len(products))
	for _, p := range products {
		out = append(out, u.toOutput(p))
	}
	return out
}

func (u *ProductUsecase) toOutput(p model.Product) ProductOutput {
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}
	features := []string(p.Features)
	if features == nil {
		features = []string{}
	}

	return ProductOutput{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price,
		DiscountPrice:  p.DiscountPrice,
		EffectivePrice: p.EffectivePrice(),
		PriceDisplay:   model.NewMoney(p.EffectivePrice(), u.currency).String(),
		Stock:          p.Stock,
		Category:       p.CategoryName(),
		CategorySlug:   p.CategorySlug(),
		IsFeatured:     p.IsFeatured,
		IsNew:          p.IsNew,
		SKU:            p.SKU,
		Images:         images,
		Features:       features,
		Details:        p.Details,
		CreatedAt:      p.CreatedAt,
	}
}
