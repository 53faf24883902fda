package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
)

func TestCheckStock(t *testing.T) {
	p := &Product{ID: "sneaker-1", StockQuantity: 5}

	require.NoError(t, p.CheckStock(5))

	err := p.CheckStock(6)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "sneaker-1", stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}
