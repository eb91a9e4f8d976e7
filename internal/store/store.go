package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"commerce-service/internal/apperr"
	"commerce-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID. Soft-deleted products are
// invisible on every read path.
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 AND deleted_at IS NULL", id)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all visible products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE deleted_at IS NULL ORDER BY id")
	return products, err
}

// DecreaseStockIfAvailable decrements stock by quantity iff the product
// exists, is not soft-deleted, and has at least that much stock. The
// check and the decrement are a single statement so concurrent callers
// can never drive stock negative. Returns the number of affected rows;
// 0 means insufficient stock (or no such product).
func (s *Store) DecreaseStockIfAvailable(ctx context.Context, productID int64, quantity int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to decrease stock: %w", err)
	}
	return res.RowsAffected()
}

// decreaseStockTx is the in-transaction form used by PlaceOrder.
func decreaseStockTx(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to decrease stock: %w", err)
	}
	return res.RowsAffected()
}

// IncreaseStock restores stock for a product, used to compensate a
// failed or refunded order. Unconditional apart from the visibility
// filter.
func (s *Store) IncreaseStock(ctx context.Context, productID int64, quantity int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to increase stock: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return apperr.ErrProductNotFound
	}
	return nil
}
