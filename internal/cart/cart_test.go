package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products map[int64]models.Product
	err      error
	calls    int
}

func (f *fakeCatalog) GetProductsByIDs(_ context.Context, ids []int64) ([]models.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func product(id int64, name, price string) models.Product {
	return models.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func TestCartMutations(t *testing.T) {
	c := New()
	c.Add(3, 2)
	c.Increase(3)
	c.Increase(7)
	c.Add(9, 0)

	assert.Equal(t, 3, c.Quantity(3))
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, 4, c.TotalItems())
	assert.Equal(t, []int64{3, 7}, c.ProductIDs())

	require.NoError(t, c.Decrease(7))
	assert.Equal(t, 0, c.Quantity(7))
	assert.Equal(t, 1, c.Count(), "decrementing a quantity of 1 removes the entry")

	assert.ErrorIs(t, c.Decrease(42), ErrNotInCart)
	assert.Equal(t, 1, c.Count())

	c.Remove(3)
	assert.Equal(t, 0, c.Count())
}

func TestResolveScenario(t *testing.T) {
	catalog := &fakeCatalog{products: map[int64]models.Product{3: product(3, "Apple", "30.00")}}

	res, err := Resolve(context.Background(), catalog, Cart{3: 2})
	require.NoError(t, err)

	require.Len(t, res.Lines, 1)
	assert.Equal(t, int64(3), res.Lines[0].Product.ID)
	assert.Equal(t, 2, res.Lines[0].Quantity)
	assert.True(t, res.Lines[0].ItemTotal.Equal(decimal.RequireFromString("60.00")))
	assert.True(t, res.Total.Equal(decimal.RequireFromString("60.00")))
	assert.Empty(t, res.Missing)
}

func TestResolveReportsMissingProducts(t *testing.T) {
	catalog := &fakeCatalog{products: map[int64]models.Product{
		1: product(1, "Milk", "45.50"),
		5: product(5, "Bread", "20.00"),
	}}

	res, err := Resolve(context.Background(), catalog, Cart{5: 3, 1: 1, 2: 4})
	require.NoError(t, err)

	require.Len(t, res.Lines, 2)
	assert.Equal(t, int64(1), res.Lines[0].Product.ID)
	assert.Equal(t, int64(5), res.Lines[1].Product.ID)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("105.50")), "got %s", res.Total)
	assert.Equal(t, []int64{2}, res.Missing)
}

func TestResolveEmptyCartSkipsCatalog(t *testing.T) {
	catalog := &fakeCatalog{}

	res, err := Resolve(context.Background(), catalog, New())
	require.NoError(t, err)

	assert.True(t, res.Empty())
	assert.True(t, res.Total.IsZero())
	assert.Zero(t, catalog.calls)
}

func TestResolveCatalogError(t *testing.T) {
	boom := errors.New("db down")
	_, err := Resolve(context.Background(), &fakeCatalog{err: boom}, Cart{1: 1})
	assert.ErrorIs(t, err, boom)
}
