package model

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// 金額は最小通貨単位の整数で持ち、表示のときだけ小数にする。
type Money struct {
	Amount   int64
	Currency currency.Unit
}

func NewMoney(amount int64, unit currency.Unit) Money {
	return Money{Amount: amount, Currency: unit}
}

// Decimal は通貨の標準桁数（USD=2, JPY=0）で小数に直した値。
func (m Money) Decimal() decimal.Decimal {
	scale, _ := currency.Standard.Rounding(m.Currency)
	return decimal.New(m.Amount, -int32(scale))
}

// "USD 12.34" の形
func (m Money) String() string {
	scale, _ := currency.Standard.Rounding(m.Currency)
	return m.Currency.String() + " " + m.Decimal().StringFixed(int32(scale))
}
