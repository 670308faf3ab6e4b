// Package cart holds the session cart and resolves it against the catalog.
package cart

import (
	"context"
	"errors"
	"sort"

	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

var ErrNotInCart = errors.New("product not in cart")

// Cart maps product id to a quantity of at least 1.
type Cart map[int64]int

func New() Cart {
	return Cart{}
}

// Add increments the quantity of a product, creating the entry if needed.
func (c Cart) Add(productID int64, quantity int) {
	if quantity < 1 {
		return
	}
	c[productID] += quantity
}

func (c Cart) Increase(productID int64) {
	c.Add(productID, 1)
}

// Decrease lowers the quantity by one. An entry that reaches zero is removed.
func (c Cart) Decrease(productID int64) error {
	quantity, ok := c[productID]
	if !ok {
		return ErrNotInCart
	}
	if quantity <= 1 {
		delete(c, productID)
		return nil
	}
	c[productID] = quantity - 1
	return nil
}

func (c Cart) Remove(productID int64) {
	delete(c, productID)
}

func (c Cart) Quantity(productID int64) int {
	return c[productID]
}

// Count is the number of distinct products in the cart.
func (c Cart) Count() int {
	return len(c)
}

// TotalItems is the sum of all quantities.
func (c Cart) TotalItems() int {
	total := 0
	for _, quantity := range c {
		total += quantity
	}
	return total
}

// ProductIDs returns the ids in the cart in ascending order.
func (c Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Catalog is the read side of the product store the resolver needs.
type Catalog interface {
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

type Line struct {
	Product   models.Product  `json:"product"`
	Quantity  int             `json:"quantity"`
	ItemTotal decimal.Decimal `json:"item_total"`
}

// Resolution is a cart priced against the current catalog. Missing lists ids
// whose product no longer exists; they contribute nothing to Total.
type Resolution struct {
	Lines   []Line          `json:"cart_items"`
	Total   decimal.Decimal `json:"total_price"`
	Missing []int64         `json:"-"`
}

func (r Resolution) Empty() bool {
	return len(r.Lines) == 0
}

// Resolve prices every entry at the catalog's current price. Lines are in
// ascending product id order.
func Resolve(ctx context.Context, catalog Catalog, c Cart) (Resolution, error) {
	res := Resolution{Lines: []Line{}, Total: decimal.Zero}
	if len(c) == 0 {
		return res, nil
	}

	products, err := catalog.GetProductsByIDs(ctx, c.ProductIDs())
	if err != nil {
		return Resolution{}, err
	}

	byID := make(map[int64]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	for _, id := range c.ProductIDs() {
		product, ok := byID[id]
		if !ok {
			res.Missing = append(res.Missing, id)
			continue
		}
		quantity := c[id]
		itemTotal := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
		res.Lines = append(res.Lines, Line{Product: product, Quantity: quantity, ItemTotal: itemTotal})
		res.Total = res.Total.Add(itemTotal)
	}

	return res, nil
}
