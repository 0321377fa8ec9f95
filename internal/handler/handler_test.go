package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"
	"storefront/internal/handler"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/middleware"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// 固定の商品一覧を返すだけのリポジトリ
type fakeCatalog struct {
	products []model.Product
}

func (f *fakeCatalog) ListAll(ctx context.Context) ([]model.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) FindByID(ctx context.Context, id string) (model.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Product{}, repo.ErrNotFound
}

func (f *fakeCatalog) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return model.Product{}, repo.ErrNotFound
}

func (f *fakeCatalog) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	var out []model.Product
	for _, p := range f.products {
		if p.IsFeatured && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListWithCounts(ctx context.Context) ([]repo.CategoryWithCount, error) {
	return []repo.CategoryWithCount{{Category: model.Category{Name: "Shoes", Slug: "shoes"}, ProductCount: 2}}, nil
}

const secret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	shoes := &model.Category{Name: "Shoes", Slug: "shoes"}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	d := int64(8000)
	catalog := &fakeCatalog{products: []model.Product{
		{ID: "p1", Name: "Runner", Slug: "runner", Price: 10000, DiscountPrice: &d, Stock: 5, Category: shoes, IsFeatured: true, CreatedAt: base.Add(time.Hour)},
		{ID: "p2", Name: "Boot", Slug: "boot", Price: 15000, Stock: 5, Category: shoes, CreatedAt: base},
		{ID: "p3", Name: "Tote", Slug: "tote", Price: 3000, Stock: 5, CreatedAt: base.Add(2 * time.Hour)},
	}}

	log := zap.NewNop()
	productUC := usecase.NewProductUsecase(catalog, catalog, currency.USD, log)
	cartUC := usecase.NewCartUsecase(infraRepo.NewCartMemoryRepository(), catalog, cart.Policy{}, currency.USD, log)
	issuer := middleware.NewCartTokenIssuer(secret, time.Hour, false)

	e := echo.New()
	handler.NewHealthHandler(nil).RegisterRoutes(e)
	handler.NewProductHandler(productUC).RegisterRoutes(e)
	handler.NewCartHandler(cartUC).RegisterRoutes(e, middleware.CartToken(issuer, log))
	return e
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(middleware.CartTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := do(e, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	e2 := echo.New()
	handler.NewHealthHandler(func(ctx context.Context) error { return errors.New("down") }).RegisterRoutes(e2)
	rec = do(e2, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProducts_List(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/products?category=shoes&sort=price_asc&min_price=abc", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode[usecase.ProductListOutput](t, rec)
	require.Len(t, out.Items, 2)
	assert.Equal(t, "runner", out.Items[0].Slug)
	assert.Equal(t, "boot", out.Items[1].Slug)
	assert.Equal(t, []string{"All", "Shoes", "Uncategorized"}, out.Categories)

	rec = do(e, http.MethodGet, "/products?page=x&limit=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out = decode[usecase.ProductListOutput](t, rec)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, []string{"tote", "runner"}, []string{out.Items[0].Slug, out.Items[1].Slug})
}

func TestProducts_FeaturedDetailCategories(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/products/featured", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	featured := decode[struct {
		Items []usecase.ProductOutput `json:"items"`
	}](t, rec)
	require.Len(t, featured.Items, 1)
	assert.Equal(t, "runner", featured.Items[0].Slug)

	rec = do(e, http.MethodGet, "/products/boot", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p2", decode[usecase.ProductOutput](t, rec).ID)

	rec = do(e, http.MethodGet, "/products/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode[handler.ErrorResponse](t, rec).Error)

	rec = do(e, http.MethodGet, "/categories", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"product_count":2`)
}

func TestCart_Flow(t *testing.T) {
	e := newTestServer(t)

	// 初回はトークンが発行される
	rec := do(e, http.MethodGet, "/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(middleware.CartTokenHeader)
	require.NotEmpty(t, token)

	rec = do(e, http.MethodPost, "/cart/items", `{"product_id":"p1","quantity":2}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(middleware.CartTokenHeader))

	rec = do(e, http.MethodPost, "/cart/items", `{"product_id":"p3"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[usecase.CartResponse](t, rec)
	assert.Equal(t, int64(3), out.TotalItems)
	assert.Equal(t, int64(19000), out.TotalPrice)
	assert.Equal(t, "USD 190.00", out.TotalPriceDisplay)

	rec = do(e, http.MethodPatch, "/cart/items/p1", `{"quantity":5}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(6), decode[usecase.CartResponse](t, rec).TotalItems)

	rec = do(e, http.MethodDelete, "/cart/items/p3", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[usecase.CartResponse](t, rec).Items, 1)

	rec = do(e, http.MethodPost, "/cart/checkout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[usecase.CartResponse](t, rec)
	assert.Equal(t, int64(40000), snap.TotalPrice)

	rec = do(e, http.MethodGet, "/cart", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[usecase.CartResponse](t, rec).Items)

	rec = do(e, http.MethodPost, "/cart/checkout", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", decode[handler.ErrorResponse](t, rec).Error)
}

func TestCart_SeparateTokensAreSeparateCarts(t *testing.T) {
	e := newTestServer(t)
	issuer := middleware.NewCartTokenIssuer(secret, time.Hour, false)
	a, _, err := issuer.Issue(uuid.NewString())
	require.NoError(t, err)
	b, _, err := issuer.Issue(uuid.NewString())
	require.NoError(t, err)

	rec := do(e, http.MethodPost, "/cart/items", `{"product_id":"p2","quantity":1}`, a)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/cart", "", b)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[usecase.CartResponse](t, rec).Items)

	rec = do(e, http.MethodDelete, "/cart", "", a)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[usecase.CartResponse](t, rec).Items)
}

func TestCart_BadRequests(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/cart/items", `{"product_id":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/cart/items", `{"product_id":"zzz","quantity":1}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "product not found", decode[handler.ErrorResponse](t, rec).Error)

	// int64上限の数量を2回追加しても上限に丸められ、合計は負にならない
	huge := `{"product_id":"p1","quantity":9223372036854775807}`
	rec = do(e, http.MethodPost, "/cart/items", huge, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(middleware.CartTokenHeader)
	rec = do(e, http.MethodPost, "/cart/items", huge, token)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[usecase.CartResponse](t, rec)
	require.Len(t, body.Items, 1)
	assert.Equal(t, cart.MaxQuantity, body.Items[0].Quantity)
	assert.Equal(t, cart.MaxQuantity, body.TotalItems)
	assert.Equal(t, 8000*cart.MaxQuantity, body.TotalPrice)
	assert.Positive(t, body.TotalPrice)
}
