package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 全商品を新しい順で返す。絞り込みは呼び出し側。
func (r *ProductGormRepository) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product

	if err := r.db.WithContext(ctx).
		Preload("Category").
		Order("created_at desc").
		Order("id desc").
		Find(&products).Error; err != nil {
		return []model.Product{}, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id string) (model.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Product{}, repo.ErrNotFound
	}
	return r.findOne(ctx, "id = ?", id)
}

// slugで商品を取得
func (r *ProductGormRepository) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	return r.findOne(ctx, "slug = ?", slug)
}

func (r *ProductGormRepository) findOne(ctx context.Context, query string, arg any) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where(query, arg).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

// おすすめ商品
func (r *ProductGormRepository) ListFeatured(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product

	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_featured = ?", true).
		Order("created_at desc").
		Limit(limit).
		Find(&products).Error; err != nil {
		return []model.Product{}, fmt.Errorf("list featured products: %w", err)
	}

	return products, nil
}

// カテゴリを名前順で、商品数付きで返す
func (r *ProductGormRepository) ListWithCounts(ctx context.Context) ([]repo.CategoryWithCount, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Order("name asc").Find(&categories).Error; err != nil {
		return []repo.CategoryWithCount{}, fmt.Errorf("list categories: %w", err)
	}

	type countRow struct {
		CategoryID string
		Count      int64
	}
	var rows []countRow
	if err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Select("category_id, count(*) as count").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&rows).Error; err != nil {
		return []repo.CategoryWithCount{}, fmt.Errorf("count products: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Count
	}

	out := make([]repo.CategoryWithCount, 0, len(categories))
	for _, c := range categories {
		out = append(out, repo.CategoryWithCount{Category: c, ProductCount: counts[c.ID]})
	}
	return out, nil
}

// シード前の全削除（商品→カテゴリの順）
func (r *ProductGormRepository) DeleteAll(ctx context.Context) error {
	db := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := db.Delete(&model.Product{}).Error; err != nil {
		return fmt.Errorf("delete products: %w", err)
	}
	if err := db.Delete(&model.Category{}).Error; err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	return nil
}

func (r *ProductGormRepository) CreateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *ProductGormRepository) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	// 関連の二重作成を防ぐ
	if err := r.db.WithContext(ctx).Omit("Category").Create(&p).Error; err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}
