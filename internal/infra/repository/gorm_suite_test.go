package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

type gormRepositorySuite struct {
	suite.Suite

	container *postgres.PostgresContainer
	db        *gorm.DB
	products  *infraRepo.ProductGormRepository
	carts     *infraRepo.CartGormRepository
	tx        *infraRepo.TxManagerGorm
}

// entry point to run the tests in the suite
func TestGormRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("postgres container test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	suite.Run(t, new(gormRepositorySuite))
}

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	c, err := postgres.Run(ctx, "postgres:17.6-alpine3.22",
		postgres.WithDatabase("storefront"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", fmt.Errorf("postgres.Run: %w", err)
	}

	connStr, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("pc.ConnectionString: %w", err)
	}
	return c, connStr, nil
}

// before all tests in the suite
func (s *gormRepositorySuite) SetupSuite() {
	ctx := s.T().Context()

	var connStr string
	var err error
	s.container, connStr, err = startPostgres(ctx)
	s.Require().NoError(err)

	s.db, err = db.Connect(connStr, false)
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(s.db))

	s.products = infraRepo.NewProductGormRepository(s.db)
	s.carts = infraRepo.NewCartGormRepository(s.db)
	s.tx = infraRepo.NewTxManagerGorm(s.db)
}

// after all tests in the suite
func (s *gormRepositorySuite) TearDownSuite() {
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.container != nil {
		_ = testcontainers.TerminateContainer(s.container)
	}
}

func (s *gormRepositorySuite) TearDownTest() {
	ctx := context.Background()
	s.Require().NoError(s.products.DeleteAll(ctx))
	s.Require().NoError(s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.CartSession{}).Error)
}

func (s *gormRepositorySuite) seed(ctx context.Context) (model.Category, []model.Product) {
	t := s.T()

	shoes, err := s.products.CreateCategory(ctx, model.Category{Name: "Shoes", Slug: "shoes"})
	require.NoError(t, err)
	_, err = s.products.CreateCategory(ctx, model.Category{Name: "Bags", Slug: "bags"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	var out []model.Product
	for i := 0; i < 3; i++ {
		discount := int64(500)
		p, err := s.products.CreateProduct(ctx, model.Product{
			Name:          gofakeit.ProductName(),
			Slug:          fmt.Sprintf("product-%d-%s", i, gofakeit.LetterN(6)),
			Price:         int64(1000 * (i + 1)),
			DiscountPrice: &discount,
			Stock:         int64(i),
			CategoryID:    &shoes.ID,
			IsFeatured:    i == 0,
			Images:        []string{"https://img.example/a.jpg", "https://img.example/b.jpg"},
			Features:      []string{"waterproof"},
			Details:       map[string]any{"material": "leather"},
			CreatedAt:     now.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		out = append(out, p)
	}
	return shoes, out
}

func (s *gormRepositorySuite) TestProducts_ListAll() {
	t := s.T()
	ctx := t.Context()
	_, created := s.seed(ctx)

	got, err := s.products.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// 新しい順
	assert.Equal(t, created[2].ID, got[0].ID)
	assert.Equal(t, created[0].ID, got[2].ID)

	require.NotNil(t, got[0].Category)
	assert.Equal(t, "Shoes", got[0].CategoryName())
	assert.Equal(t, []string{"https://img.example/a.jpg", "https://img.example/b.jpg"}, []string(got[0].Images))
	assert.Equal(t, "leather", got[0].Details["material"])
	require.NotNil(t, got[0].DiscountPrice)
	assert.Equal(t, int64(500), *got[0].DiscountPrice)
}

func (s *gormRepositorySuite) TestProducts_FindBySlugAndID() {
	t := s.T()
	ctx := t.Context()
	_, created := s.seed(ctx)

	p, err := s.products.FindBySlug(ctx, created[1].Slug)
	require.NoError(t, err)
	assert.Equal(t, created[1].ID, p.ID)

	p, err = s.products.FindByID(ctx, created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, created[1].Slug, p.Slug)

	_, err = s.products.FindBySlug(ctx, "missing")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = s.products.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = s.products.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func (s *gormRepositorySuite) TestProducts_FeaturedAndCategoryCounts() {
	t := s.T()
	ctx := t.Context()
	_, created := s.seed(ctx)

	featured, err := s.products.ListFeatured(ctx, 10)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, created[0].ID, featured[0].ID)

	cats, err := s.products.ListWithCounts(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	// 名前順
	assert.Equal(t, "Bags", cats[0].Name)
	assert.Equal(t, int64(0), cats[0].ProductCount)
	assert.Equal(t, "Shoes", cats[1].Name)
	assert.Equal(t, int64(3), cats[1].ProductCount)
}

func (s *gormRepositorySuite) TestTxManager_RollbackOnError() {
	t := s.T()
	ctx := t.Context()

	err := s.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Catalog().CreateCategory(ctx, model.Category{Name: "Tmp", Slug: "tmp"}); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.EqualError(t, err, "abort")

	cats, err := s.products.ListWithCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func (s *gormRepositorySuite) TestCarts_LoadUpdateDelete() {
	t := s.T()
	ctx := t.Context()
	cartID := uuid.NewString()

	items, err := s.carts.Load(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, items)

	discount := int64(80)
	saved, err := s.carts.Update(ctx, cartID, func(items []model.CartLineItem) ([]model.CartLineItem, error) {
		return append(items, model.CartLineItem{ProductID: "p1", Name: "A", Price: 100, DiscountPrice: &discount, Quantity: 2}), nil
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	saved, err = s.carts.Update(ctx, cartID, func(items []model.CartLineItem) ([]model.CartLineItem, error) {
		items[0].Quantity = 5
		return items, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved[0].Quantity)

	items, err = s.carts.Load(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(5), items[0].Quantity)
	require.NotNil(t, items[0].DiscountPrice)
	assert.Equal(t, int64(400), items[0].LineTotal())

	require.NoError(t, s.carts.Delete(ctx, cartID))
	items, err = s.carts.Load(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.carts.Load(ctx, "not-a-uuid")
	assert.Error(t, err)
}

// 同じスロットへの同時追加で更新が失われない
func (s *gormRepositorySuite) TestCarts_ConcurrentUpdates() {
	t := s.T()
	ctx := t.Context()
	cartID := uuid.NewString()
	p := model.Product{ID: uuid.NewString(), Name: "x", Price: 100}

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.carts.Update(ctx, cartID, func(items []model.CartLineItem) ([]model.CartLineItem, error) {
				c := cart.New(items, cart.Policy{})
				c.AddItem(p, 1)
				return c.Items(), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := s.carts.Load(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(workers), items[0].Quantity)
}
