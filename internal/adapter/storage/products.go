package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"

	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/internal/core/port"
)

var ErrOutOfRange = errors.New("value out of bigint range")

var _ port.ProductsStorage = (*ProductsRepository)(nil)

// A ProductsRepository keeps the projected catalog in the products table.
type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

// StoreProducts upserts the products by index in one transaction.
func (r ProductsRepository) StoreProducts(
	ctx context.Context, vs []domain.Product,
) (storeErr error) {
	const op = "ProductsRepository.StoreProducts"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, v := range vs {
		if err := checkBigintRange(v); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	tx, err := r.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}

	defer func() {
		if storeErr == nil {
			if err := tx.Commit(); err != nil {
				storeErr = fmt.Errorf("%s: failed to commit %w", op, err)
			}
			return
		}

		err := tx.Rollback()
		if err != nil {
			log.Error("failed to rollback tx", "err", err)
		}
	}()

	query := `
		INSERT INTO products (
			product_index, sku, name, image, description,
			price_wei, quantity_available, quantity_sold, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (product_index) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			image = EXCLUDED.image,
			description = EXCLUDED.description,
			price_wei = EXCLUDED.price_wei,
			quantity_available = EXCLUDED.quantity_available,
			quantity_sold = EXCLUDED.quantity_sold,
			updated_at = EXCLUDED.updated_at;
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare stmt: %w", op, err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			log.Error("failed to close prepared stmt", "err", err)
		}
	}()

	for _, v := range vs {
		_, err := stmt.ExecContext(ctx,
			int64(v.Index), int64(v.SKU), v.Name, v.Image, v.Description,
			weiString(v.Price), int64(v.QuantityAvailable), int64(v.QuantitySold),
		)
		if err != nil {
			return fmt.Errorf("%s: failed to exec: %w", op, err)
		}
	}

	log.Debug("products stored", "count", len(vs))
	return nil
}

// checkBigintRange rejects counters that would wrap in a BIGINT column.
func checkBigintRange(v domain.Product) error {
	fields := [...]struct {
		name  string
		value uint64
	}{
		{"product_index", v.Index},
		{"sku", v.SKU},
		{"quantity_available", v.QuantityAvailable},
		{"quantity_sold", v.QuantitySold},
	}
	for _, f := range fields {
		if f.value > math.MaxInt64 {
			return fmt.Errorf(
				"%w: product %d %s=%d", ErrOutOfRange, v.Index, f.name, f.value,
			)
		}
	}
	return nil
}

func weiString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
