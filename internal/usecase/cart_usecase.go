package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

var errEmptyCart = errors.New("cart is empty")

// CartUsecase は /cart の業務ロジックです。
// 状態遷移は domain/cart、保存は CartRepository に任せる。
type CartUsecase struct {
	carts    repo.CartRepository
	products repo.ProductRepository
	policy   cart.Policy
	currency currency.Unit
	log      *zap.Logger
}

func NewCartUsecase(
	carts repo.CartRepository,
	products repo.ProductRepository,
	policy cart.Policy,
	cur currency.Unit,
	log *zap.Logger,
) *CartUsecase {
	return &CartUsecase{
		carts:    carts,
		products: products,
		policy:   policy,
		currency: cur,
		log:      log,
	}
}

type CartItemResponse struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Image         string `json:"image"`
	Category      string `json:"category"`
	Price         int64  `json:"price"`
	DiscountPrice *int64 `json:"discount_price,omitempty"`
	UnitPrice     int64  `json:"unit_price"`
	Quantity      int64  `json:"quantity"`
	LineTotal     int64  `json:"line_total"`
}

type CartResponse struct {
	Items             []CartItemResponse `json:"items"`
	TotalItems        int64              `json:"total_items"`
	TotalPrice        int64              `json:"total_price"`
	TotalPriceDisplay string             `json:"total_price_display"`
	Currency          string             `json:"currency"`
}

type AddCartInput struct {
	ProductID string
	Quantity  int64
}

// GetCart はカート取得（無ければ空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, cartID string) (CartResponse, error) {
	if cartID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "missing cart")
	}

	items, err := u.carts.Load(ctx, cartID)
	if err != nil {
		return CartResponse{}, u.dbError("load cart", err, cartID)
	}
	return u.buildCartResponse(cart.New(items, u.policy)), nil
}

// AddItem はカートに追加（同一商品は数量加算、1未満は1）。
func (u *CartUsecase) AddItem(ctx context.Context, cartID string, in AddCartInput) (CartResponse, error) {
	if cartID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "missing cart")
	}
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, u.dbError("find product", err, cartID)
	}

	return u.mutate(ctx, cartID, func(c *cart.Cart) error {
		c.AddItem(p, in.Quantity)
		return nil
	})
}

// UpdateQuantity は数量変更。0以下は削除、カートに無い商品は何もしない。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, cartID string, productID string, quantity int64) (CartResponse, error) {
	if cartID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "missing cart")
	}

	return u.mutate(ctx, cartID, func(c *cart.Cart) error {
		c.UpdateQuantity(productID, quantity)
		return nil
	})
}

// 明細削除（何度呼んでも同じ結果）
func (u *CartUsecase) RemoveItem(ctx context.Context, cartID string, productID string) (CartResponse, error) {
	if cartID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "missing cart")
	}

	return u.mutate(ctx, cartID, func(c *cart.Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

func (u *CartUsecase) Clear(ctx context.Context, cartID string) (CartResponse, error) {
	if cartID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "missing cart")
	}

	// 空のカートはスロットごと消す
	if err := u.carts.Delete(ctx, cartID); err != nil {
		return CartResponse{}, u.dbError("clear cart", err, cartID)
	}
	return u.buildCartResponse(cart.New(nil, u.policy)), nil
}

// Checkout は注文確定時点の明細と合計を返し、カートを空にする。
// 注文の作成そのものはここでは行わない。
func (u *CartUsecase) Checkout(ctx context.Context, cartID string) (CartResponse, error) {
	if cartID == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "missing cart")
	}

	var snapshot CartResponse
	_, err := u.carts.Update(ctx, cartID, func(items []model.CartLineItem) ([]model.CartLineItem, error) {
		c := cart.New(items, u.policy)
		if c.Len() == 0 {
			return nil, errEmptyCart
		}
		snapshot = u.buildCartResponse(c)
		c.Clear()
		return c.Items(), nil
	})
	if errors.Is(err, errEmptyCart) {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}
	if err != nil {
		return CartResponse{}, u.dbError("checkout cart", err, cartID)
	}

	u.log.Info("cart checked out",
		zap.String("cart_id", cartID),
		zap.Int64("total_items", snapshot.TotalItems),
		zap.Int64("total_price", snapshot.TotalPrice),
	)
	return snapshot, nil
}

// 読み込み→変更→保存をスロット単位でまとめて行う
func (u *CartUsecase) mutate(ctx context.Context, cartID string, fn func(c *cart.Cart) error) (CartResponse, error) {
	var out CartResponse
	_, err := u.carts.Update(ctx, cartID, func(items []model.CartLineItem) ([]model.CartLineItem, error) {
		c := cart.New(items, u.policy)
		if err := fn(c); err != nil {
			return nil, err
		}
		out = u.buildCartResponse(c)
		return c.Items(), nil
	})
	if err != nil {
		return CartResponse{}, u.dbError("update cart", err, cartID)
	}
	return out, nil
}

func (u *CartUsecase) buildCartResponse(c *cart.Cart) CartResponse {
	items := c.Items()
	respItems := make([]CartItemResponse, 0, len(items))
	for _, it := range items {
		respItems = append(respItems, CartItemResponse{
			ProductID:     it.ProductID,
			Name:          it.Name,
			Slug:          it.Slug,
			Image:         it.Image,
			Category:      it.Category,
			Price:         it.Price,
			DiscountPrice: it.DiscountPrice,
			UnitPrice:     it.EffectivePrice(),
			Quantity:      it.Quantity,
			LineTotal:     it.LineTotal(),
		})
	}

	total := c.TotalPrice()
	return CartResponse{
		Items:             respItems,
		TotalItems:        c.TotalItems(),
		TotalPrice:        total,
		TotalPriceDisplay: model.NewMoney(total, u.currency).String(),
		Currency:          u.currency.String(),
	}
}

func (u *CartUsecase) dbError(op string, err error, cartID string) error {
	u.log.Error(op, zap.String("cart_id", cartID), zap.Error(err))
	return NewHTTPError(http.StatusInternalServerError, "db error")
}
