package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// 入力が不正
var ErrInvalidInput = errors.New("invalid input")

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// カテゴリの入力（シードファイル / 将来の管理API）
type CategoryInput struct {
	Name        string  `yaml:"name" json:"name"`
	Slug        string  `yaml:"slug" json:"slug"`
	Description *string `yaml:"description" json:"description,omitempty"`
	Image       *string `yaml:"image" json:"image,omitempty"`
}

// 商品の入力。必須: name, price, images。それ以外は任意。
// 価格は最小通貨単位。
type ProductInput struct {
	Name          string         `yaml:"name" json:"name"`
	Slug          string         `yaml:"slug" json:"slug"`
	Description   string         `yaml:"description" json:"description"`
	Price         int64          `yaml:"price" json:"price"`
	DiscountPrice *int64         `yaml:"discount_price" json:"discount_price,omitempty"`
	Stock         int64          `yaml:"stock" json:"stock"`
	Category      string         `yaml:"category" json:"category"`
	IsFeatured    bool           `yaml:"is_featured" json:"is_featured"`
	IsNew         bool           `yaml:"is_new" json:"is_new"`
	SKU           *string        `yaml:"sku" json:"sku,omitempty"`
	Images        []string       `yaml:"images" json:"images"`
	Features      []string       `yaml:"features" json:"features"`
	Details       map[string]any `yaml:"details" json:"details,omitempty"`
}

// Slugify は "Running Shoes" -> "running-shoes" のように正規化する。
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeCategory は前後空白を落とし、slugが空なら名前から作る。
func NormalizeCategory(in CategoryInput) (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}

	slug, err := normalizeSlug(in.Slug, in.Name)
	if err != nil {
		return in, err
	}
	in.Slug = slug
	return in, nil
}

// NormalizeProduct は商品入力を検証して正規化した値を返す。
func NormalizeProduct(in ProductInput) (ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}

	slug, err := normalizeSlug(in.Slug, in.Name)
	if err != nil {
		return in, err
	}
	in.Slug = slug

	if in.Price < 0 {
		return in, fmt.Errorf("%w: %s: price must be >= 0", ErrInvalidInput, in.Slug)
	}
	if in.DiscountPrice != nil {
		d := *in.DiscountPrice
		if d < 0 || d >= in.Price {
			return in, fmt.Errorf("%w: %s: discount_price must be between 0 and price", ErrInvalidInput, in.Slug)
		}
	}
	if in.Stock < 0 {
		return in, fmt.Errorf("%w: %s: stock must be >= 0", ErrInvalidInput, in.Slug)
	}

	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		return in, fmt.Errorf("%w: %s: at least one image is required", ErrInvalidInput, in.Slug)
	}
	in.Images = images

	in.Category = strings.TrimSpace(in.Category)
	if in.Features == nil {
		in.Features = []string{}
	}
	return in, nil
}

func normalizeSlug(slug, name string) (string, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return "", fmt.Errorf("%w: invalid slug %q", ErrInvalidInput, slug)
	}
	return slug, nil
}
