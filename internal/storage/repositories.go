package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// TableSummary describes one stored price table.
type TableSummary struct {
	FacilityID string    `json:"facility_id"`
	ItemCount  int       `json:"item_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PriceTableRepository stores derived facility price tables.
type PriceTableRepository struct {
	db  TxDB
	now func() time.Time
}

// NewPriceTableRepository creates a new price table repository.
func NewPriceTableRepository(db TxDB) *PriceTableRepository {
	return &PriceTableRepository{db: db, now: time.Now}
}

// Replace swaps the stored table of a facility for table in one
// transaction. Readers see either the old rows or the new rows.
func (r *PriceTableRepository) Replace(ctx context.Context, table *pricing.FacilityPriceTable) error {
	if table == nil || table.FacilityID == "" {
		return fmt.Errorf("replace price table: missing facility id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM price_representatives WHERE facility_id = $1`,
		`DELETE FROM price_items WHERE facility_id = $1`,
		`DELETE FROM price_tables WHERE facility_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, table.FacilityID); err != nil {
			return fmt.Errorf("clear price table: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO price_tables (facility_id, item_count, updated_at) VALUES ($1, $2, $3)`,
		table.FacilityID, table.ItemCount(), formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("insert price table: %w", err)
	}

	query := `
		INSERT INTO price_items (
			id, facility_id, position, category, group_name, name, price, original_price,
			detail, size_value, size_unit, source_type, source_doc_id, page_index, corrections
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	position := 0
	for _, category := range table.Categories {
		for _, item := range category.Items {
			_, err := tx.ExecContext(ctx, query,
				item.ID.String(), table.FacilityID, position, string(category.Key), item.Group,
				item.Name, item.Price, nullInt64(item.OriginalPrice), item.Detail,
				nullFloat64(item.SizeValue), item.SizeUnit, string(item.SourceType),
				item.SourceDocID, item.PageIndex, strings.Join(item.Corrections, ","),
			)
			if err != nil {
				return fmt.Errorf("insert price item %q: %w", item.Name, err)
			}
			position++
		}
	}

	for _, group := range pricing.SuperGroups() {
		item, ok := table.Representative[group]
		if !ok {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO price_representatives (facility_id, super_group, item_id) VALUES ($1, $2, $3)`,
			table.FacilityID, string(group), item.ID.String())
		if err != nil {
			return fmt.Errorf("insert representative %s: %w", group, err)
		}
	}

	return tx.Commit()
}

// Get loads the stored table of a facility.
func (r *PriceTableRepository) Get(ctx context.Context, facilityID string) (*pricing.FacilityPriceTable, error) {
	var updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT updated_at FROM price_tables WHERE facility_id = $1`, facilityID,
	).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, group_name, name, price, original_price, detail,
		       size_value, size_unit, source_type, source_doc_id, page_index, corrections
		FROM price_items
		WHERE facility_id = $1
		ORDER BY position
	`, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make(map[pricing.CategoryKey][]pricing.LineItem)
	byID := make(map[uuid.UUID]pricing.LineItem)
	for rows.Next() {
		item, err := scanPriceItem(rows)
		if err != nil {
			return nil, err
		}
		buckets[item.Category] = append(buckets[item.Category], item)
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	table := &pricing.FacilityPriceTable{
		FacilityID:     facilityID,
		Representative: map[pricing.SuperGroup]pricing.LineItem{},
	}
	for _, key := range pricing.Categories() {
		if len(buckets[key]) == 0 {
			continue
		}
		table.Categories = append(table.Categories, pricing.PriceCategory{
			Key:         key,
			DisplayName: key.DisplayName(),
			OrderIndex:  key.OrderIndex(),
			Items:       buckets[key],
		})
	}

	reps, err := r.representatives(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	for group, id := range reps {
		if item, ok := byID[id]; ok {
			table.Representative[group] = item
		}
	}
	return table, nil
}

func (r *PriceTableRepository) representatives(ctx context.Context, facilityID string) (map[pricing.SuperGroup]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT super_group, item_id FROM price_representatives WHERE facility_id = $1`, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[pricing.SuperGroup]uuid.UUID)
	for rows.Next() {
		var group, rawID string
		if err := rows.Scan(&group, &rawID); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse representative id: %w", err)
		}
		out[pricing.SuperGroup(group)] = id
	}
	return out, rows.Err()
}

// ListFacilities returns a summary of every stored table ordered by facility id.
func (r *PriceTableRepository) ListFacilities(ctx context.Context) ([]TableSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT facility_id, item_count, updated_at FROM price_tables ORDER BY facility_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TableSummary
	for rows.Next() {
		var (
			s         TableSummary
			updatedAt string
		)
		if err := rows.Scan(&s.FacilityID, &s.ItemCount, &updatedAt); err != nil {
			return nil, err
		}
		s.UpdatedAt = parseTime(updatedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes the stored table of a facility.
func (r *PriceTableRepository) Delete(ctx context.Context, facilityID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var affected int64
	for _, stmt := range []string{
		`DELETE FROM price_representatives WHERE facility_id = $1`,
		`DELETE FROM price_items WHERE facility_id = $1`,
		`DELETE FROM price_tables WHERE facility_id = $1`,
	} {
		res, err := tx.ExecContext(ctx, stmt, facilityID)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
	}
	if affected == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func scanPriceItem(rows *sql.Rows) (pricing.LineItem, error) {
	var (
		item          pricing.LineItem
		rawID         string
		category      string
		sourceType    string
		corrections   string
		originalPrice sql.NullInt64
		sizeValue     sql.NullFloat64
	)
	err := rows.Scan(
		&rawID, &category, &item.Group, &item.Name, &item.Price, &originalPrice, &item.Detail,
		&sizeValue, &item.SizeUnit, &sourceType, &item.SourceDocID, &item.PageIndex, &corrections,
	)
	if err != nil {
		return item, err
	}
	if item.ID, err = uuid.Parse(rawID); err != nil {
		return item, fmt.Errorf("parse item id: %w", err)
	}
	item.Category = pricing.CategoryKey(category)
	item.SourceType = pricing.SourceType(sourceType)
	if originalPrice.Valid {
		v := originalPrice.Int64
		item.OriginalPrice = &v
	}
	if sizeValue.Valid {
		v := sizeValue.Float64
		item.SizeValue = &v
	}
	if corrections != "" {
		item.Corrections = strings.Split(corrections, ",")
	}
	return item, nil
}

// StructuredItemRepository stores operator-entered price rows, the
// structured channel of the pipeline.
type StructuredItemRepository struct {
	db  TxDB
	now func() time.Time
}

// NewStructuredItemRepository creates a new structured item repository.
func NewStructuredItemRepository(db TxDB) *StructuredItemRepository {
	return &StructuredItemRepository{db: db, now: time.Now}
}

// Replace sets the structured rows of a facility to items.
func (r *StructuredItemRepository) Replace(ctx context.Context, facilityID string, items []pricing.LineItem) error {
	if facilityID == "" {
		return fmt.Errorf("replace structured items: missing facility id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM structured_items WHERE facility_id = $1`, facilityID); err != nil {
		return fmt.Errorf("clear structured items: %w", err)
	}

	query := `
		INSERT INTO structured_items (
			id, facility_id, position, name, price, detail, category, group_name, size_value, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	updatedAt := formatTime(r.now())
	for i, item := range items {
		id := pricing.ItemID(facilityID, pricing.SourceStructured, i, item.Name, item.Price)
		_, err := tx.ExecContext(ctx, query,
			id.String(), facilityID, i, item.Name, item.Price, item.Detail,
			string(item.Category), item.Group, nullFloat64(item.SizeValue), updatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert structured item %q: %w", item.Name, err)
		}
	}
	return tx.Commit()
}

// ListByFacility returns the structured rows of a facility in entry order.
// A facility without rows yields an empty slice.
func (r *StructuredItemRepository) ListByFacility(ctx context.Context, facilityID string) ([]pricing.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, price, detail, category, group_name, size_value
		FROM structured_items
		WHERE facility_id = $1
		ORDER BY position
	`, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []pricing.LineItem{}
	for rows.Next() {
		var (
			item      pricing.LineItem
			rawID     string
			category  string
			sizeValue sql.NullFloat64
		)
		if err := rows.Scan(&rawID, &item.Name, &item.Price, &item.Detail, &category, &item.Group, &sizeValue); err != nil {
			return nil, err
		}
		if item.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse structured item id: %w", err)
		}
		if key, ok := pricing.ParseCategoryKey(category); ok {
			item.Category = key
		}
		if sizeValue.Valid {
			v := sizeValue.Float64
			item.SizeValue, item.SizeUnit = &v, pricing.UnitPyeong
		}
		item.SourceType = pricing.SourceStructured
		items = append(items, item)
	}
	return items, rows.Err()
}

// Repositories bundles all repositories over one connection.
type Repositories struct {
	PriceTables     *PriceTableRepository
	StructuredItems *StructuredItemRepository
	Runs            *RunRepository
}

// NewRepositories creates all repositories.
func NewRepositories(db TxDB) *Repositories {
	return &Repositories{
		PriceTables:     NewPriceTableRepository(db),
		StructuredItems: NewStructuredItemRepository(db),
		Runs:            NewRunRepository(db),
	}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
