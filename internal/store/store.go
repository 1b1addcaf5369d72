package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yashypsoft/gold-deal-finder/internal/listing"
)

// Store persists scan batches in a local SQLite database.
type Store struct {
	sql *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dbPath)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1) // SQLite best practice for embedded use
	sqldb.SetConnMaxLifetime(0)

	s := &Store{sql: sqldb}
	if err := s.migrate(context.Background()); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.sql.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			scan_id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			duration_seconds REAL NOT NULL,
			total_products INTEGER NOT NULL,
			good_deals INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			scan_id TEXT NOT NULL REFERENCES scans(scan_id) ON DELETE CASCADE,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			weight_grams REAL NOT NULL,
			purity TEXT NOT NULL,
			product_type TEXT NOT NULL,
			selling_price REAL NOT NULL,
			original_price REAL NOT NULL DEFAULT 0,
			expected_price REAL NOT NULL,
			discount_percent REAL NOT NULL,
			price_per_gram REAL NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			spot_price REAL NOT NULL DEFAULT 0,
			is_deal INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_products_scan ON products(scan_id);`,
		`CREATE INDEX IF NOT EXISTS idx_products_created ON products(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_products_discount ON products(discount_percent);`,
	}
	for _, stmt := range stmts {
		if _, err := s.sql.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Batch is one completed scan cycle ready for persistence.
type Batch struct {
	ScanID    string
	Timestamp time.Time
	Duration  time.Duration
	Products  []listing.Product
	Deals     []listing.Product
}

// SaveScan writes the batch in one transaction.
func (s *Store) SaveScan(ctx context.Context, b Batch) error {
	dealSet := make(map[string]bool, len(b.Deals))
	for _, d := range b.Deals {
		dealSet[productKey(d)] = true
	}

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scans (scan_id, created_at, duration_seconds, total_products, good_deals) VALUES (?,?,?,?,?)`,
		b.ScanID, b.Timestamp.Unix(), b.Duration.Seconds(), len(b.Products), len(b.Deals),
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products
		(scan_id, source, title, description, weight_grams, purity, product_type,
		 selling_price, original_price, expected_price, discount_percent, price_per_gram,
		 url, image_url, brand, spot_price, is_deal, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range b.Products {
		isDeal := 0
		if dealSet[productKey(p)] {
			isDeal = 1
		}
		ts := p.Timestamp
		if ts.IsZero() {
			ts = b.Timestamp
		}
		if _, err := stmt.ExecContext(ctx,
			b.ScanID, p.Source, p.Title, p.Description, p.WeightGrams, string(p.Purity), string(p.ProductType),
			p.SellingPrice, p.OriginalPrice, p.ExpectedPrice, p.DiscountPercent, p.PricePerGram,
			p.URL, p.ImageURL, p.Brand, p.SpotPrice, isDeal, ts.Unix(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func productKey(p listing.Product) string {
	return fmt.Sprintf("%s|%s|%g|%g", p.Source, p.Title, p.WeightGrams, p.SellingPrice)
}

// ScanSummary is a per-scan aggregate for history listings.
type ScanSummary struct {
	ScanID          string         `json:"scan_id"`
	Timestamp       time.Time      `json:"timestamp"`
	DurationSeconds float64        `json:"duration_seconds"`
	TotalProducts   int            `json:"total_products"`
	GoodDeals       int            `json:"good_deals"`
	AvgDiscount     float64        `json:"avg_discount"`
	SourceBreakdown map[string]int `json:"source_breakdown"`
}

// ListScans returns scan summaries, newest first.
func (s *Store) ListScans(ctx context.Context, limit, offset int) ([]ScanSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.sql.QueryContext(ctx,
		`SELECT scan_id, created_at, duration_seconds, total_products, good_deals
		 FROM scans ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanSummary
	var ids []any
	for rows.Next() {
		var sum ScanSummary
		var ts int64
		if err := rows.Scan(&sum.ScanID, &ts, &sum.DurationSeconds, &sum.TotalProducts, &sum.GoodDeals); err != nil {
			return nil, err
		}
		sum.Timestamp = time.Unix(ts, 0).UTC()
		sum.SourceBreakdown = map[string]int{}
		out = append(out, sum)
		ids = append(ids, sum.ScanID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	q := `SELECT scan_id, source, COUNT(*), AVG(discount_percent)
	      FROM products WHERE scan_id IN (` + placeholders(len(ids)) + `)
	      GROUP BY scan_id, source`
	agg, err := s.sql.QueryContext(ctx, q, ids...)
	if err != nil {
		return nil, err
	}
	defer agg.Close()

	byID := make(map[string]*ScanSummary, len(out))
	discSum := map[string]float64{}
	discN := map[string]int{}
	for i := range out {
		byID[out[i].ScanID] = &out[i]
	}
	for agg.Next() {
		var scanID, source string
		var n int
		var avg sql.NullFloat64
		if err := agg.Scan(&scanID, &source, &n, &avg); err != nil {
			return nil, err
		}
		sum, ok := byID[scanID]
		if !ok {
			continue
		}
		sum.SourceBreakdown[source] = n
		if avg.Valid {
			discSum[scanID] += avg.Float64 * float64(n)
			discN[scanID] += n
		}
	}
	if err := agg.Err(); err != nil {
		return nil, err
	}
	for id, n := range discN {
		if n > 0 {
			byID[id].AvgDiscount = round2(discSum[id] / float64(n))
		}
	}
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	s := "?"
	for i := 1; i < n; i++ {
		s += ",?"
	}
	return s
}

// ScanProducts returns every product recorded for one scan.
func (s *Store) ScanProducts(ctx context.Context, scanID string) ([]listing.Product, error) {
	return s.queryProducts(ctx, `WHERE scan_id=? ORDER BY discount_percent DESC`, scanID)
}

// ProductFilter narrows historical product queries.
type ProductFilter struct {
	Source      string
	Purity      string
	MinDiscount *float64
	DealsOnly   bool
	Limit       int
	Offset      int
}

// Products returns historical products newest first, applying the filter.
func (s *Store) Products(ctx context.Context, f ProductFilter) ([]listing.Product, error) {
	where := `WHERE 1=1`
	var args []any
	if f.Source != "" {
		where += ` AND source=?`
		args = append(args, f.Source)
	}
	if f.Purity != "" {
		where += ` AND purity=?`
		args = append(args, f.Purity)
	}
	if f.MinDiscount != nil {
		where += ` AND discount_percent>=?`
		args = append(args, *f.MinDiscount)
	}
	if f.DealsOnly {
		where += ` AND is_deal=1`
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	where += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)
	return s.queryProducts(ctx, where, args...)
}

// LatestProducts returns the products of the most recent scan.
func (s *Store) LatestProducts(ctx context.Context, limit int) ([]listing.Product, error) {
	var scanID string
	err := s.sql.QueryRowContext(ctx, `SELECT scan_id FROM scans ORDER BY created_at DESC LIMIT 1`).Scan(&scanID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.queryProducts(ctx, `WHERE scan_id=? ORDER BY discount_percent DESC LIMIT ?`, scanID, limit)
}

func (s *Store) queryProducts(ctx context.Context, whereClause string, args ...any) ([]listing.Product, error) {
	q := `SELECT scan_id, source, title, description, weight_grams, purity, product_type,
	             selling_price, original_price, expected_price, discount_percent, price_per_gram,
	             url, image_url, brand, spot_price, created_at
	      FROM products ` + whereClause
	rows, err := s.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []listing.Product
	for rows.Next() {
		var p listing.Product
		var purity, ptype string
		var ts int64
		if err := rows.Scan(&p.ScanID, &p.Source, &p.Title, &p.Description, &p.WeightGrams, &purity, &ptype,
			&p.SellingPrice, &p.OriginalPrice, &p.ExpectedPrice, &p.DiscountPercent, &p.PricePerGram,
			&p.URL, &p.ImageURL, &p.Brand, &p.SpotPrice, &ts); err != nil {
			return nil, err
		}
		p.Purity = listing.Purity(purity)
		p.ProductType = listing.ProductType(ptype)
		p.IsJewellery = p.ProductType == listing.TypeJewellery
		p.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats are whole-history aggregates for the dashboard.
type Stats struct {
	TotalScans         int                `json:"total_scans"`
	TotalProducts      int                `json:"total_products_ever"`
	TotalGoodDeals     int                `json:"total_good_deals"`
	AvgDiscountAll     float64            `json:"avg_discount_all"`
	BestDeal           *listing.Product   `json:"best_deal_ever,omitempty"`
	SourceDistribution map[string]int     `json:"source_distribution"`
	PurityDistribution map[string]int     `json:"purity_distribution"`
	ScansByDay         map[string]int     `json:"scans_by_day"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{
		SourceDistribution: map[string]int{},
		PurityDistribution: map[string]int{},
		ScansByDay:         map[string]int{},
	}

	err := s.sql.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total_products),0), COALESCE(SUM(good_deals),0) FROM scans`,
	).Scan(&st.TotalScans, &st.TotalProducts, &st.TotalGoodDeals)
	if err != nil {
		return Stats{}, err
	}

	var avg sql.NullFloat64
	if err := s.sql.QueryRowContext(ctx, `SELECT AVG(discount_percent) FROM products`).Scan(&avg); err != nil {
		return Stats{}, err
	}
	if avg.Valid {
		st.AvgDiscountAll = round2(avg.Float64)
	}

	if err := s.fillDistribution(ctx, `SELECT source, COUNT(*) FROM products GROUP BY source`, st.SourceDistribution); err != nil {
		return Stats{}, err
	}
	if err := s.fillDistribution(ctx, `SELECT purity, COUNT(*) FROM products GROUP BY purity`, st.PurityDistribution); err != nil {
		return Stats{}, err
	}
	if err := s.fillDistribution(ctx,
		`SELECT date(created_at,'unixepoch'), COUNT(*) FROM scans GROUP BY 1`, st.ScansByDay); err != nil {
		return Stats{}, err
	}

	best, err := s.queryProducts(ctx, `ORDER BY discount_percent DESC LIMIT 1`)
	if err != nil {
		return Stats{}, err
	}
	if len(best) > 0 {
		st.BestDeal = &best[0]
	}
	return st, nil
}

func (s *Store) fillDistribution(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.sql.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

// TimelinePoint is one day of scan activity.
type TimelinePoint struct {
	Date        string  `json:"date"`
	Scans       int     `json:"scans"`
	Products    int     `json:"products"`
	GoodDeals   int     `json:"good_deals"`
	AvgDiscount float64 `json:"avg_discount"`
}

// Timeline aggregates scan activity per day over the trailing window.
func (s *Store) Timeline(ctx context.Context, days int) ([]TimelinePoint, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	rows, err := s.sql.QueryContext(ctx,
		`SELECT date(created_at,'unixepoch'), COUNT(*), COALESCE(SUM(total_products),0), COALESCE(SUM(good_deals),0)
		 FROM scans WHERE created_at >= ? GROUP BY 1 ORDER BY 1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimelinePoint
	for rows.Next() {
		var pt TimelinePoint
		if err := rows.Scan(&pt.Date, &pt.Scans, &pt.Products, &pt.GoodDeals); err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		var avg sql.NullFloat64
		err := s.sql.QueryRowContext(ctx,
			`SELECT AVG(p.discount_percent) FROM products p
			 JOIN scans sc ON sc.scan_id = p.scan_id
			 WHERE date(sc.created_at,'unixepoch') = ?`, out[i].Date).Scan(&avg)
		if err != nil {
			return nil, err
		}
		if avg.Valid {
			out[i].AvgDiscount = round2(avg.Float64)
		}
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
