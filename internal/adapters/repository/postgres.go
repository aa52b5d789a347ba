package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/internal/domain/model"
	"github.com/cecilianzambi2023-prog/pambo-marketplace-sub001/pkg/logger"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// PostgresStore implements ListingStore and SellerStore on Postgres.
type PostgresStore struct {
	db            Querier
	listingsTable string
	sellersTable  string
	logger        logger.Logger
}

// NewPostgresStore creates a store reading through db.
func NewPostgresStore(db Querier, opts ...Option) *PostgresStore {
	s := &PostgresStore{
		db:            db,
		listingsTable: defaultListingsTable,
		sellersTable:  defaultSellersTable,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindListings runs one query variant and converts the rows to listings.
func (s *PostgresStore) FindListings(ctx context.Context, variant QueryVariant, q ListingQuery) ([]model.Listing, error) {
	query, args, err := buildListingQuery(s.listingsTable, variant, q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("findListings %s query: %w", variant.Name, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("findListings %s collect: %w", variant.Name, err)
	}

	listings := make([]model.Listing, 0, len(records))
	for _, rec := range records {
		l, err := listingFromRow(rec)
		if err != nil {
			return nil, fmt.Errorf("findListings %s decode: %w", variant.Name, err)
		}
		listings = append(listings, l)
	}

	s.logger.Debug(ctx, "listings fetched",
		logger.String("variant", variant.Name),
		logger.Int("rows", len(listings)),
		logger.Duration("took", time.Since(start)),
	)
	return listings, nil
}

type sellerRow struct {
	ID            string     `db:"id"`
	Verified      *bool      `db:"verified"`
	AccountStatus *string    `db:"account_status"`
	JoinDate      *time.Time `db:"join_date"`
}

// SellersByID loads the sellers with the given IDs.
func (s *PostgresStore) SellersByID(ctx context.Context, ids []string) ([]model.Seller, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	table, err := quoteTable(s.sellersTable)
	if err != nil {
		return nil, err
	}

	query := `SELECT id::text AS id, verified, account_status::text AS account_status, join_date
		FROM ` + table + ` WHERE id::text = ANY($1)`
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("sellersByID query: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[sellerRow])
	if err != nil {
		return nil, fmt.Errorf("sellersByID collect: %w", err)
	}

	sellers := make([]model.Seller, 0, len(records))
	for _, r := range records {
		seller := model.Seller{ID: r.ID}
		if r.Verified != nil {
			seller.Verified = *r.Verified
		}
		if r.AccountStatus != nil {
			seller.AccountStatus = model.AccountStatus(strings.ToLower(*r.AccountStatus))
		}
		if r.JoinDate != nil {
			seller.JoinDate = r.JoinDate.UTC()
		}
		sellers = append(sellers, seller)
	}
	return sellers, nil
}

func quoteTable(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidTable
	}
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidTable, name)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

// buildListingQuery renders the SQL and positional arguments for one variant.
func buildListingQuery(table string, v QueryVariant, q ListingQuery) (string, []any, error) {
	if len(v.Columns) == 0 {
		return "", nil, fmt.Errorf("variant %q has no columns", v.Name)
	}
	ident, err := quoteTable(table)
	if err != nil {
		return "", nil, err
	}

	var (
		args  []any
		conds []string
	)
	if v.FilterHub && q.Hub != "" {
		args = append(args, q.Hub)
		conds = append(conds, fmt.Sprintf("hub = $%d", len(args)))
	}
	if v.FilterStatus && q.Status != "" {
		args = append(args, q.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if county := strings.TrimSpace(q.County); v.FilterCounty && county != "" {
		args = append(args, county)
		conds = append(conds, fmt.Sprintf("LOWER(county) = LOWER($%d)", len(args)))
	}
	if needle := strings.TrimSpace(q.Text); needle != "" && len(v.TextColumns) > 0 {
		args = append(args, "%"+escapeLike(needle)+"%")
		matches := make([]string, len(v.TextColumns))
		for i, col := range v.TextColumns {
			matches[i] = fmt.Sprintf("%s ILIKE $%d", col, len(args))
		}
		conds = append(conds, "("+strings.Join(matches, " OR ")+")")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(v.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(ident)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	if v.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(v.OrderBy)
	}
	args = append(args, q.Limit())
	fmt.Fprintf(&b, " LIMIT $%d", len(args))
	args = append(args, max(q.From, 0))
	fmt.Fprintf(&b, " OFFSET $%d", len(args))

	return b.String(), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// listingFromRow converts a row keyed by canonical column names. Columns a
// variant does not select are left at their zero value.
func listingFromRow(row map[string]any) (model.Listing, error) {
	l := model.Listing{
		ID:          text(row["id"]),
		Hub:         text(row["hub"]),
		Title:       text(row["title"]),
		Description: text(row["description"]),
		Category:    text(row["category"]),
		County:      text(row["county"]),
		SellerID:    text(row["seller_id"]),
		CreatedAt:   timestamp(row["created_at"]),
		UpdatedAt:   timestamp(row["updated_at"]),
	}

	if raw := text(row["price"]); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return model.Listing{}, fmt.Errorf("listing %s price %q: %w", l.ID, raw, err)
		}
		l.Price = price
	}
	l.Views = integer(row["views"])
	return l, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func integer(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func timestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}
		}
		return parsed.UTC()
	default:
		return time.Time{}
	}
}
