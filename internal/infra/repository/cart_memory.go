package repository

import (
	"context"
	"sync"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// メモリ上のカートスロット。テストと CART_STORE=memory 用。
// プロセスを再起動すると消える。
type CartMemoryRepository struct {
	mu    sync.Mutex
	slots map[string][]model.CartLineItem
}

func NewCartMemoryRepository() *CartMemoryRepository {
	return &CartMemoryRepository{slots: map[string][]model.CartLineItem{}}
}

func (r *CartMemoryRepository) Load(ctx context.Context, cartID string) ([]model.CartLineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkCartID(cartID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return clone(r.slots[cartID]), nil
}

// mutexでスロット全体を直列化する
func (r *CartMemoryRepository) Update(ctx context.Context, cartID string, fn repo.UpdateFunc) ([]model.CartLineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkCartID(cartID); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(clone(r.slots[cartID]))
	if err != nil {
		return nil, err
	}
	r.slots[cartID] = clone(next)
	return clone(next), nil
}

func (r *CartMemoryRepository) Delete(ctx context.Context, cartID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkCartID(cartID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.slots, cartID)
	return nil
}

// 呼び出し側に内部のスライスを渡さない
func clone(items []model.CartLineItem) []model.CartLineItem {
	out := make([]model.CartLineItem, len(items))
	copy(out, items)
	return out
}
