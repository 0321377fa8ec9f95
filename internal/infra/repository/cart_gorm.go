package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgreSQLのunique_violation
const pgUniqueViolation = "23505"

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// スロットが無ければ空を返す
func (r *CartGormRepository) Load(ctx context.Context, cartID string) ([]model.CartLineItem, error) {
	if err := checkCartID(cartID); err != nil {
		return nil, err
	}

	var s model.CartSession
	err := r.db.WithContext(ctx).Where("id = ?", cartID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []model.CartLineItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return nonNil(s.Items), nil
}

// 行ロック（FOR UPDATE）で読み込み→fn→保存を1トランザクションで行う。
// 新規スロットを同時に作って衝突したときは1回だけやり直す。
func (r *CartGormRepository) Update(ctx context.Context, cartID string, fn repo.UpdateFunc) ([]model.CartLineItem, error) {
	if err := checkCartID(cartID); err != nil {
		return nil, err
	}

	items, err := r.update(ctx, cartID, fn)
	if isUniqueViolation(err) {
		items, err = r.update(ctx, cartID, fn)
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CartGormRepository) update(ctx context.Context, cartID string, fn repo.UpdateFunc) ([]model.CartLineItem, error) {
	var saved []model.CartLineItem

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s model.CartSession
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", cartID).
			First(&s).Error

		exists := findErr == nil
		if !exists && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lock cart: %w", findErr)
		}

		next, err := fn(nonNil(s.Items))
		if err != nil {
			return err
		}
		next = nonNil(next)

		if exists {
			s.Items = next
			if err := tx.Save(&s).Error; err != nil {
				return fmt.Errorf("save cart: %w", err)
			}
		} else {
			// 無い場合は新規作成
			if err := tx.Create(&model.CartSession{ID: cartID, Items: next}).Error; err != nil {
				return fmt.Errorf("create cart: %w", err)
			}
		}

		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// スロットを削除。無くてもエラーにしない。
func (r *CartGormRepository) Delete(ctx context.Context, cartID string) error {
	if err := checkCartID(cartID); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Where("id = ?", cartID).Delete(&model.CartSession{}).Error; err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// カートIDはUUIDのみ（gorm・memoryで共通）
func checkCartID(cartID string) error {
	if _, err := uuid.Parse(cartID); err != nil {
		return fmt.Errorf("invalid cart id %q: %w", cartID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nonNil(items []model.CartLineItem) []model.CartLineItem {
	if items == nil {
		return []model.CartLineItem{}
	}
	return items
}
