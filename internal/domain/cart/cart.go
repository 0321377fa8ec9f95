// Package cart はカートの状態遷移（追加・数量変更・削除）と集計を扱う。
// 永続化は持たない。保存は repository.CartRepository 側で行う。
package cart

import (
	"fmt"
	"math"
	"strings"

	"storefront/internal/domain/model"
)

// StockPolicy は数量を在庫で制限するかどうか。
type StockPolicy string

const (
	// 在庫チェックなし（既定）
	StockPolicyNone StockPolicy = "none"
	// 数量を在庫スナップショットまでに丸める
	StockPolicyClamp StockPolicy = "clamp"
)

func ParseStockPolicy(s string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StockPolicyNone:
		return StockPolicyNone, nil
	case StockPolicyClamp:
		return StockPolicyClamp, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q", s)
	}
}

// 1明細あたりの数量の上限。これを超える指定は上限に丸める。
const MaxQuantity int64 = 9999

type Policy struct {
	Stock StockPolicy
}

// Cart は1クライアント分のカート。
// 商品IDごとに明細は1つ、数量は常に1以上。
type Cart struct {
	items  []model.CartLineItem
	policy Policy
}

// New は保存済みの明細からカートを復元する。
// 不正な明細（数量0以下・重複）はここで取り除く。上限超えは上限に丸める。
func New(items []model.CartLineItem, policy Policy) *Cart {
	c := &Cart{
		items:  make([]model.CartLineItem, 0, len(items)),
		policy: policy,
	}
	for _, it := range items {
		if it.Quantity < 1 || it.ProductID == "" || c.index(it.ProductID) >= 0 {
			continue
		}
		it.Quantity = min(it.Quantity, MaxQuantity)
		c.items = append(c.items, it)
	}
	return c
}

// AddItem は同一商品なら数量を加算、無ければ明細を追加する。
// quantityが1未満なら1として扱う。加算後も MaxQuantity を超えない。
func (c *Cart) AddItem(p model.Product, quantity int64) {
	quantity = max(1, min(quantity, MaxQuantity))

	if i := c.index(p.ID); i >= 0 {
		c.items[i].Quantity = min(c.items[i].Quantity, MaxQuantity-quantity) + quantity
		c.items[i].Stock = p.Stock
		c.applyPolicy(i)
		return
	}

	c.items = append(c.items, snapshot(p, quantity))
	c.applyPolicy(len(c.items) - 1)
}

// UpdateQuantity は数量を上書きする。0以下は削除と同じ。
// 無い商品IDは何もしない。
func (c *Cart) UpdateQuantity(productID string, quantity int64) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	if quantity <= 0 {
		c.removeAt(i)
		return
	}
	c.items[i].Quantity = min(quantity, MaxQuantity)
	c.applyPolicy(i)
}

func (c *Cart) RemoveItem(productID string) {
	if i := c.index(productID); i >= 0 {
		c.removeAt(i)
	}
}

func (c *Cart) Clear() {
	c.items = c.items[:0]
}

func (c *Cart) TotalItems() int64 {
	var n int64
	for _, it := range c.items {
		n = addSat(n, it.Quantity)
	}
	return n
}

func (c *Cart) TotalPrice() int64 {
	var total int64
	for _, it := range c.items {
		total = addSat(total, it.LineTotal())
	}
	return total
}

// Items は追加順の明細のコピー
func (c *Cart) Items() []model.CartLineItem {
	out := make([]model.CartLineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) index(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// clampのときは在庫を超えないようにする。在庫0なら明細ごと消す。
// 在庫スナップショットを更新するのは AddItem だけ。UpdateQuantity は前回追加時の在庫で丸める。
func (c *Cart) applyPolicy(i int) {
	if c.policy.Stock != StockPolicyClamp {
		return
	}
	if c.items[i].Stock <= 0 {
		c.removeAt(i)
		return
	}
	if c.items[i].Quantity > c.items[i].Stock {
		c.items[i].Quantity = c.items[i].Stock
	}
}

// int64の上限で止める加算（どちらも0以上の前提）
func addSat(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func snapshot(p model.Product, quantity int64) model.CartLineItem {
	var discount *int64
	if p.DiscountPrice != nil {
		d := *p.DiscountPrice
		discount = &d
	}
	return model.CartLineItem{
		ProductID:     p.ID,
		Name:          p.Name,
		Price:         p.Price,
		DiscountPrice: discount,
		Image:         p.PrimaryImage(),
		Category:      p.CategoryName(),
		Slug:          p.Slug,
		Stock:         p.Stock,
		Quantity:      quantity,
	}
}
