package service

import (
	"shoestore/internal/models"
	"shoestore/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// CalculateOrderTotal sums quantity * price * (100 - discount) / 100 over the
// order lines. Lines without a resolved product count as zero, and any
// failure while summing yields zero.
func CalculateOrderTotal(order *models.Order) (total decimal.Decimal) {
	defer func() {
		if r := recover(); r != nil {
			util.GetLogger().Error("Order total calculation failed", zap.Any("panic", r))
			total = decimal.Zero
		}
	}()

	total = decimal.Zero
	if order == nil {
		return total
	}

	for _, item := range order.Items {
		if item.Product == nil {
			continue
		}
		line := item.Product.Price.
			Mul(decimal.NewFromInt(int64(item.Quantity))).
			Mul(hundred.Sub(item.Product.Discount)).
			Div(hundred)
		total = total.Add(line)
	}

	return total.Round(2)
}

func withTotals(orders []models.Order) []models.Order {
	for i := range orders {
		orders[i].Total = CalculateOrderTotal(&orders[i])
	}
	return orders
}
