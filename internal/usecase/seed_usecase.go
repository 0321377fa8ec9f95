package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/validator"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// シードファイルの中身。商品の category はカテゴリの slug か名前。
type SeedCatalog struct {
	Categories []validator.CategoryInput `yaml:"categories"`
	Products   []validator.ProductInput  `yaml:"products"`
}

type SeedResult struct {
	Categories int
	Products   int
}

func LoadSeedFile(path string) (SeedCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return SeedCatalog{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return DecodeSeed(f)
}

// 未知のキーはタイプミスとみなしてエラーにする
func DecodeSeed(r io.Reader) (SeedCatalog, error) {
	var c SeedCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return SeedCatalog{}, fmt.Errorf("decode seed: %w", err)
	}
	return c, nil
}

type SeedUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
	now func() time.Time
}

func NewSeedUsecase(tx repo.TransactionManager, log *zap.Logger) *SeedUsecase {
	return &SeedUsecase{tx: tx, log: log, now: time.Now}
}

// Seed は既存の商品とカテゴリを消してから投入する（1トランザクション）。
// 検証は書き込み前に全件行う。
func (u *SeedUsecase) Seed(ctx context.Context, c SeedCatalog) (SeedResult, error) {
	cats, products, err := normalizeSeed(c)
	if err != nil {
		return SeedResult{}, err
	}

	// ファイルの先頭ほど新しい商品として並ぶように作成日時をずらす
	base := u.now().UTC().Truncate(time.Second)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		w := r.Catalog()
		if err := w.DeleteAll(ctx); err != nil {
			return err
		}

		bySlug := make(map[string]string, len(cats))
		byName := make(map[string]string, len(cats))
		for _, in := range cats {
			created, err := w.CreateCategory(ctx, model.Category{
				Name:        in.Name,
				Slug:        in.Slug,
				Description: in.Description,
				Image:       in.Image,
			})
			if err != nil {
				return fmt.Errorf("create category %s: %w", in.Slug, err)
			}
			bySlug[in.Slug] = created.ID
			if _, ok := byName[in.Name]; !ok {
				byName[in.Name] = created.ID
			}
		}

		for i, in := range products {
			p := model.Product{
				Name:          in.Name,
				Slug:          in.Slug,
				Description:   in.Description,
				Price:         in.Price,
				DiscountPrice: in.DiscountPrice,
				Stock:         in.Stock,
				IsFeatured:    in.IsFeatured,
				IsNew:         in.IsNew,
				SKU:           in.SKU,
				Images:        in.Images,
				Features:      in.Features,
				Details:       in.Details,
				CreatedAt:     base.Add(-time.Duration(i) * time.Second),
			}
			if in.Category != "" {
				// slug一致を名前一致より優先する
				id, ok := bySlug[in.Category]
				if !ok {
					id = byName[in.Category]
				}
				p.CategoryID = &id
			}
			if _, err := w.CreateProduct(ctx, p); err != nil {
				return fmt.Errorf("create product %s: %w", in.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		u.log.Error("seed catalog", zap.Error(err))
		return SeedResult{}, err
	}

	res := SeedResult{Categories: len(cats), Products: len(products)}
	u.log.Info("catalog seeded",
		zap.Int("categories", res.Categories),
		zap.Int("products", res.Products),
	)
	return res, nil
}

func normalizeSeed(c SeedCatalog) ([]validator.CategoryInput, []validator.ProductInput, error) {
	cats := make([]validator.CategoryInput, 0, len(c.Categories))
	catSlugs := make(map[string]bool, len(c.Categories))
	catNames := make(map[string]bool, len(c.Categories))
	for _, in := range c.Categories {
		n, err := validator.NormalizeCategory(in)
		if err != nil {
			return nil, nil, err
		}
		if catSlugs[n.Slug] {
			return nil, nil, fmt.Errorf("%w: duplicate category slug %q", validator.ErrInvalidInput, n.Slug)
		}
		catSlugs[n.Slug] = true
		catNames[n.Name] = true
		cats = append(cats, n)
	}

	products := make([]validator.ProductInput, 0, len(c.Products))
	slugs := make(map[string]bool, len(c.Products))
	for _, in := range c.Products {
		n, err := validator.NormalizeProduct(in)
		if err != nil {
			return nil, nil, err
		}
		if slugs[n.Slug] {
			return nil, nil, fmt.Errorf("%w: duplicate product slug %q", validator.ErrInvalidInput, n.Slug)
		}
		if n.Category != "" && !catSlugs[n.Category] && !catNames[n.Category] {
			return nil, nil, fmt.Errorf("%w: %s: unknown category %q", validator.ErrInvalidInput, n.Slug, n.Category)
		}
		slugs[n.Slug] = true
		products = append(products, n)
	}
	return cats, products, nil
}
