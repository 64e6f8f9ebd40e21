package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/product-catalog-api/internal/domain"
	"github.com/phrazzld/product-catalog-api/internal/platform/logger"
	"github.com/phrazzld/product-catalog-api/internal/store"
	"github.com/shopspring/decimal"
)

// DefaultQueryTimeout bounds a single statement when no timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

const productColumns = `id, name, description, price, stock_quantity, version, created_at, updated_at`

// PostgresProductStore implements the store.ProductStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProductStore struct {
	db           store.DBTX
	sqlDB        *sql.DB
	logger       *slog.Logger
	queryTimeout time.Duration
}

// NewPostgresProductStore creates a new PostgreSQL implementation of the ProductStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresProductStore(
	db store.DBTX,
	logger *slog.Logger,
	queryTimeout time.Duration,
) *PostgresProductStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	sqlDB, _ := db.(*sql.DB)

	return &PostgresProductStore{
		db:           db,
		sqlDB:        sqlDB,
		logger:       logger.With(slog.String("component", "product_store")),
		queryTimeout: queryTimeout,
	}
}

// Ensure PostgresProductStore implements store.ProductStore interface
var _ store.ProductStore = (*PostgresProductStore)(nil)

// WithTx returns a store bound to tx. The original store is unchanged.
func (s *PostgresProductStore) WithTx(tx *sql.Tx) store.ProductStore {
	return &PostgresProductStore{
		db:           tx,
		sqlDB:        s.sqlDB,
		logger:       s.logger,
		queryTimeout: s.queryTimeout,
	}
}

// DB returns the underlying connection pool, or nil when the store was
// built directly on a transaction.
func (s *PostgresProductStore) DB() *sql.DB {
	return s.sqlDB
}

func (s *PostgresProductStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Create implements store.ProductStore.Create
func (s *PostgresProductStore) Create(ctx context.Context, product *domain.Product) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := product.Validate(); err != nil {
		log.Warn("product validation failed before insert",
			slog.String("product_id", product.ID.String()),
			slog.String("error", err.Error()))
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.Version,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("product id already exists",
				slog.String("product_id", product.ID.String()))
			return fmt.Errorf("%w: product %s", store.ErrDuplicate, product.ID)
		}
		log.Error("failed to insert product",
			slog.String("product_id", product.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("product", "create", "insert failed", MapError(err))
	}

	log.Debug("product created", slog.String("product_id", product.ID.String()))
	return nil
}

// GetByID implements store.ProductStore.GetByID
func (s *PostgresProductStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		log.Error("failed to get product",
			slog.String("product_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("product", "get", "query failed", MapError(err))
	}
	return product, nil
}

// List implements store.ProductStore.List
func (s *PostgresProductStore) List(
	ctx context.Context,
	filter store.ProductFilter,
	page store.Pagination,
) ([]*domain.Product, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	page = page.Normalize()

	query, args := buildListQuery(filter, page)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list products", slog.String("error", err.Error()))
		return nil, store.NewStoreError("product", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	products := make([]*domain.Product, 0, page.Limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, store.NewStoreError("product", "list", "scan failed", MapError(err))
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating product rows", slog.String("error", err.Error()))
		return nil, store.NewStoreError("product", "list", "query failed", MapError(err))
	}

	return products, nil
}

// buildListQuery assembles the filtered, paginated listing query.
func buildListQuery(filter store.ProductFilter, page store.Pagination) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if name := strings.TrimSpace(filter.NameContains); name != "" {
		conditions = append(conditions,
			fmt.Sprintf(`name ILIKE %s ESCAPE '\'`, next("%"+escapeLike(name)+"%")))
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, "price >= "+next(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, "price <= "+next(*filter.MaxPrice))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + productColumns + ` FROM products`)
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	b.WriteString(" ORDER BY created_at ASC, id ASC")
	b.WriteString(" LIMIT " + next(page.Limit))
	b.WriteString(" OFFSET " + next(page.Offset))

	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Update implements store.ProductStore.Update
// The version check and the write happen in one statement, so two writers
// holding the same version cannot both succeed.
func (s *PostgresProductStore) Update(
	ctx context.Context,
	id uuid.UUID,
	patch domain.ProductPatch,
	expectedVersion int,
) (*domain.Product, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("product_id", id.String()),
		slog.Int("expected_version", expectedVersion))

	var (
		name        sql.NullString
		description sql.NullString
		price       decimal.NullDecimal
		stock       sql.NullInt64
	)
	if patch.Name != nil {
		name = sql.NullString{String: strings.TrimSpace(*patch.Name), Valid: true}
	}
	if patch.Description != nil {
		description = sql.NullString{String: *patch.Description, Valid: true}
	}
	if patch.Price != nil {
		price = decimal.NullDecimal{Decimal: *patch.Price, Valid: true}
	}
	if patch.StockQuantity != nil {
		stock = sql.NullInt64{Int64: int64(*patch.StockQuantity), Valid: true}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		UPDATE products SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			price = COALESCE($5, price),
			stock_quantity = COALESCE($6, stock_quantity),
			version = version + 1,
			updated_at = $7
		WHERE id = $1 AND version = $2
		RETURNING `+productColumns,
		id, expectedVersion, name, description, price, stock, time.Now().UTC(),
	)

	product, err := scanProduct(row)
	if err == nil {
		log.Debug("product updated", slog.Int("version", product.Version))
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to update product", slog.String("error", err.Error()))
		return nil, store.NewStoreError("product", "update", "update failed", MapError(err))
	}

	return nil, s.missOrConflict(ctx, log, id)
}

// Delete implements store.ProductStore.Delete
func (s *PostgresProductStore) Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("product_id", id.String()),
		slog.Int("expected_version", expectedVersion))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM products WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		log.Error("failed to delete product", slog.String("error", err.Error()))
		return store.NewStoreError("product", "delete", "delete failed", MapError(err))
	}

	affected, err := CheckRowsAffected(result)
	if err != nil {
		return store.NewStoreError("product", "delete", "delete failed", MapError(err))
	}
	if affected > 0 {
		log.Debug("product deleted")
		return nil
	}

	return s.missOrConflict(ctx, log, id)
}

// missOrConflict explains why a versioned write touched no rows.
func (s *PostgresProductStore) missOrConflict(
	ctx context.Context,
	log *slog.Logger,
	id uuid.UUID,
) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		log.Error("failed to check product existence", slog.String("error", err.Error()))
		return store.NewStoreError("product", "exists", "query failed", MapError(err))
	}
	if !exists {
		return store.ErrProductNotFound
	}

	log.Debug("version conflict on product write")
	return fmt.Errorf("%w: product %s", store.ErrVersionConflict, id)
}

// Ping implements store.ProductStore.Ping
func (s *PostgresProductStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var err error
	if s.sqlDB != nil {
		err = s.sqlDB.PingContext(ctx)
	} else {
		var one int
		err = s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
	}
	if err != nil {
		if !IsUnavailable(err) {
			return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
		}
		return MapError(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.StockQuantity,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}
