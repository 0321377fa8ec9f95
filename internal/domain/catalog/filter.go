// Package catalog は商品一覧の絞り込みと並び替え。
// どの関数も入力を書き換えず、新しいスライスを返す。
package catalog

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"storefront/internal/domain/model"
)

// カテゴリ指定なしを表す値
const CategoryAll = "All"

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

// 上限なし
const NoMaxPrice int64 = math.MaxInt64

type FilterQuery struct {
	// CategoryAll か、カテゴリのslug / 表示名
	Category string
	MinPrice int64
	MaxPrice int64
	Sort     SortKey
}

func DefaultQuery() FilterQuery {
	return FilterQuery{
		Category: CategoryAll,
		MinPrice: 0,
		MaxPrice: NoMaxPrice,
		Sort:     SortNewest,
	}
}

// クエリパラメータそのままの値
type RawQuery struct {
	Category string
	MinPrice string
	MaxPrice string
	Sort     string
}

// ParseFilterQuery はエラーを返さない。
// 読めない値や範囲外の値は既定値に倒す。
func ParseFilterQuery(raw RawQuery) FilterQuery {
	q := DefaultQuery()

	if c := strings.TrimSpace(raw.Category); c != "" && !strings.EqualFold(c, CategoryAll) {
		q.Category = c
	}

	minSet := false
	if v, ok := parsePrice(raw.MinPrice); ok {
		q.MinPrice = v
		minSet = true
	}
	maxSet := false
	if v, ok := parsePrice(raw.MaxPrice); ok {
		q.MaxPrice = v
		maxSet = true
	}
	// min > max は両方とも無効
	if minSet && maxSet && q.MinPrice > q.MaxPrice {
		q.MinPrice = 0
		q.MaxPrice = NoMaxPrice
	}

	q.Sort = ParseSortKey(raw.Sort)
	return q
}

func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortPriceAsc:
		return SortPriceAsc
	case SortPriceDesc:
		return SortPriceDesc
	default:
		return SortNewest
	}
}

// 0以上の整数だけ受け付ける。"12.5" のような小数は切り捨て。
func parsePrice(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, false
		}
		return v, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0, false
	}
	if math.IsInf(f, 1) || f >= float64(math.MaxInt64) {
		return NoMaxPrice, true
	}
	return int64(f), true
}

// Apply はカテゴリ→価格→並び替えの順に適用する。
func Apply(products []model.Product, q FilterQuery) []model.Product {
	out := FilterByCategory(products, q.Category)
	out = FilterByPrice(out, q.MinPrice, q.MaxPrice)
	SortProducts(out, q.Sort)
	return out
}

// カテゴリはslug一致を優先、表示名は完全一致（大文字小文字を区別）。
func FilterByCategory(products []model.Product, selector string) []model.Product {
	if selector == "" || selector == CategoryAll {
		return slices.Clone(products)
	}

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if matchesCategory(p, selector) {
			out = append(out, p)
		}
	}
	return out
}

func matchesCategory(p model.Product, selector string) bool {
	if slug := p.CategorySlug(); slug != "" && slug == selector {
		return true
	}
	return p.CategoryName() == selector
}

func FilterByPrice(products []model.Product, minPrice, maxPrice int64) []model.Product {
	if minPrice <= 0 && maxPrice == NoMaxPrice {
		return slices.Clone(products)
	}

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		price := p.EffectivePrice()
		if price >= minPrice && price <= maxPrice {
			out = append(out, p)
		}
	}
	return out
}

// SortProducts は安定ソート。同じキーの商品は元の順序のまま。
func SortProducts(products []model.Product, key SortKey) {
	switch key {
	case SortPriceAsc:
		slices.SortStableFunc(products, func(a, b model.Product) int {
			return cmpInt64(a.EffectivePrice(), b.EffectivePrice())
		})
	case SortPriceDesc:
		slices.SortStableFunc(products, func(a, b model.Product) int {
			return cmpInt64(b.EffectivePrice(), a.EffectivePrice())
		})
	default:
		// 作成日時なしの商品は日時ありの後ろ
		slices.SortStableFunc(products, func(a, b model.Product) int {
			az, bz := a.CreatedAt.IsZero(), b.CreatedAt.IsZero()
			switch {
			case az && bz:
				return 0
			case az:
				return 1
			case bz:
				return -1
			}
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Categories は一覧に出すカテゴリ。先頭は "All"、あとは出現順で重複なし。
func Categories(products []model.Product) []string {
	out := []string{CategoryAll}
	seen := map[string]bool{}
	for _, p := range products {
		name := p.CategoryName()
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Paginate のpage/limitは範囲外なら既定値に丸める。
func Paginate(products []model.Product, page, limit int) ([]model.Product, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}

	start := (page - 1) * limit
	if start >= len(products) || start < 0 {
		return []model.Product{}, page, limit
	}
	end := start + limit
	if end > len(products) {
		end = len(products)
	}
	return slices.Clone(products[start:end]), page, limit
}
