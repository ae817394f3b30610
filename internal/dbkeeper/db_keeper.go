package dbkeeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/drstein77/storefront/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

type DBKeeper struct {
	pool *pgxpool.Pool
	log  Log
}

// poolConfig parses dsn and applies the pool limits used by the storefront.
func poolConfig(dsn string) (*pgxpool.Config, error) {
	const defaultMaxConns = int32(4)
	const defaultMinConns = int32(1)
	const defaultMaxConnLifetime = time.Minute * 10
	const defaultMaxIdletime = time.Minute * 5
	const defaultHealthCheckPeriod = time.Minute
	const defaultConnectTimeout = time.Second * 5

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConns = defaultMaxConns
	config.MinConns = defaultMinConns
	config.MaxConnLifetime = defaultMaxConnLifetime
	config.MaxConnIdleTime = defaultMaxIdletime
	config.HealthCheckPeriod = defaultHealthCheckPeriod
	config.ConnConfig.ConnectTimeout = defaultConnectTimeout
	return config, nil
}

// NewDBKeeper connects to PostgreSQL and applies the schema migrations.
func NewDBKeeper(ctx context.Context, dsn func() string, log Log) (*DBKeeper, error) {
	addr := dsn()
	if addr == "" {
		return nil, errors.New("database dsn is empty")
	}

	config, err := poolConfig(addr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database DSN: %w", err)
	}

	if err := runMigrations(addr, log); err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	log.Info("Connected!")

	return &DBKeeper{
		pool: pool,
		log:  log,
	}, nil
}

// SaveCart replaces the stored lines of the cart.
func (kp *DBKeeper) SaveCart(ctx context.Context, cart models.CartView) (err error) {
	if kp.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}

	tx, err := kp.pool.Begin(ctx)
	if err != nil {
		kp.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				kp.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO carts (id, updated_at) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`, cart.ID, cart.UpdatedAt)
	batch.Queue(`DELETE FROM cart_items WHERE cart_id = $1`, cart.ID)

	stmt := `INSERT INTO cart_items (cart_id, product_id, position, product, quantity) VALUES ($1, $2, $3, $4, $5)`
	for i, line := range cart.Lines {
		product, marshalErr := json.Marshal(line.Product)
		if marshalErr != nil {
			err = fmt.Errorf("failed to encode cart product: %w", marshalErr)
			return err
		}
		batch.Queue(stmt, cart.ID, line.Product.ID, i, product, line.Quantity)
	}

	if err = kp.sendBatch(ctx, tx, batch); err != nil {
		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		return err
	}
	return nil
}

// LoadCart reads a cart and its lines in insertion order.
func (kp *DBKeeper) LoadCart(ctx context.Context, id string) (models.CartView, bool, error) {
	cart := models.CartView{ID: id}
	if kp.pool == nil {
		return cart, false, fmt.Errorf("database connection pool is nil")
	}

	err := kp.pool.QueryRow(ctx, `SELECT updated_at FROM carts WHERE id = $1`, id).Scan(&cart.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return cart, false, nil
	}
	if err != nil {
		return cart, false, fmt.Errorf("failed to load cart: %w", err)
	}

	rows, err := kp.pool.Query(ctx, `
		SELECT product, quantity
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		kp.log.Error("Failed to execute query", zap.Error(err))
		return cart, false, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			raw  []byte
			line models.CartLine
		)
		if err := rows.Scan(&raw, &line.Quantity); err != nil {
			return cart, false, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(raw, &line.Product); err != nil {
			return cart, false, fmt.Errorf("failed to decode cart product: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if rows.Err() != nil {
		return cart, false, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}

	return cart, true, nil
}

func (kp *DBKeeper) DeleteCart(ctx context.Context, id string) error {
	if kp.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}
	if _, err := kp.pool.Exec(ctx, `DELETE FROM carts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// SaveProducts upserts the catalog snapshot and drops products no longer in it.
func (kp *DBKeeper) SaveProducts(ctx context.Context, products []models.Product, fetchedAt time.Time) (err error) {
	if kp.pool == nil {
		return fmt.Errorf("database connection pool is nil")
	}

	tx, err := kp.pool.Begin(ctx)
	if err != nil {
		kp.log.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				kp.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
			}
		}
	}()

	stmt := `
		INSERT INTO products (id, position, product_name, description, category, price, stock, manufacturer, sku, image, thumbnail)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			position = EXCLUDED.position,
			product_name = EXCLUDED.product_name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			stock = EXCLUDED.stock,
			manufacturer = EXCLUDED.manufacturer,
			sku = EXCLUDED.sku,
			image = EXCLUDED.image,
			thumbnail = EXCLUDED.thumbnail
	`
	batch := &pgx.Batch{}
	ids := make([]int32, 0, len(products))
	for i, p := range products {
		batch.Queue(stmt, p.ID, i, p.Name, p.Description, p.Category, p.Price.String(),
			p.Stock, p.Manufacturer, p.SKU, p.Image, p.Thumbnail)
		ids = append(ids, int32(p.ID))
	}
	batch.Queue(`DELETE FROM products WHERE NOT (id = ANY($1))`, ids)
	batch.Queue(`
		INSERT INTO catalog_meta (id, fetched_at) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET fetched_at = EXCLUDED.fetched_at
	`, fetchedAt)

	if err = kp.sendBatch(ctx, tx, batch); err != nil {
		return err
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		return err
	}

	kp.log.Info("Products snapshot saved", zap.Int("count", len(products)))
	return nil
}

// LoadProducts returns the stored catalog in upstream order together with its fetch time.
func (kp *DBKeeper) LoadProducts(ctx context.Context) ([]models.Product, time.Time, error) {
	var fetchedAt time.Time
	if kp.pool == nil {
		return nil, fetchedAt, fmt.Errorf("database connection pool is nil")
	}

	var stamp *time.Time
	err := kp.pool.QueryRow(ctx, `SELECT fetched_at FROM catalog_meta WHERE id = 1`).Scan(&stamp)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fetchedAt, fmt.Errorf("failed to load catalog meta: %w", err)
	}
	if stamp != nil {
		fetchedAt = *stamp
	}

	rows, err := kp.pool.Query(ctx, `
		SELECT id, product_name, description, category, price::text, stock, manufacturer, sku, image, thumbnail
		FROM products
		ORDER BY position
	`)
	if err != nil {
		kp.log.Error("Failed to execute query", zap.Error(err))
		return nil, fetchedAt, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var (
			p     models.Product
			price string
		)
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Category,
			&price,
			&p.Stock,
			&p.Manufacturer,
			&p.SKU,
			&p.Image,
			&p.Thumbnail,
		)
		if err != nil {
			kp.log.Error("Failed to scan row", zap.Error(err))
			return nil, fetchedAt, fmt.Errorf("failed to scan row: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fetchedAt, fmt.Errorf("failed to parse price of product %d: %w", p.ID, err)
		}
		products = append(products, p)
	}

	if rows.Err() != nil {
		kp.log.Error("Error occurred during rows iteration", zap.Error(rows.Err()))
		return nil, fetchedAt, fmt.Errorf("error during rows iteration: %w", rows.Err())
	}

	kp.log.Info("Successfully retrieved all products", zap.Int("count", len(products)))
	return products, fetchedAt, nil
}

func (kp *DBKeeper) sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, execErr := br.Exec(); execErr != nil {
			br.Close()
			return fmt.Errorf("failed to execute batch query: %w", execErr)
		}
	}
	if closeErr := br.Close(); closeErr != nil {
		return fmt.Errorf("failed to close batch results: %w", closeErr)
	}
	return nil
}

func (kp *DBKeeper) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := kp.pool.Ping(ctx); err != nil {
		kp.log.Error("Database ping failed", zap.Error(err))
		return false
	}

	return true
}

func (kp *DBKeeper) Close() bool {
	if kp.pool != nil {
		kp.pool.Close()
		kp.log.Info("Database connection pool closed")
		return true
	}
	kp.log.Info("Attempted to close a nil database connection pool")
	return false
}
