package store

import (
	"context"
	"database/sql"
	"fmt"

	"ardhi/internal/region/models"
	"ardhi/pkg/platform/sentinel"
)

// PostgresStore assembles county subtrees from the regions reference table.
// One row per ward; the table is loaded by migrations and never written by
// the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindCounty(ctx context.Context, name string) (*models.County, error) {
	const q = `
		SELECT county_code, sub_county, constituency, ward
		FROM regions
		WHERE county = $1
		ORDER BY sub_county, constituency, ward`

	rows, err := s.db.QueryContext(ctx, q, name)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	county := &models.County{Name: name}
	subIdx := map[string]int{}
	conIdx := map[string]int{}
	for rows.Next() {
		var code, subCounty, constituency, ward string
		if err := rows.Scan(&code, &subCounty, &constituency, &ward); err != nil {
			return nil, fmt.Errorf("scan region row: %w", err)
		}
		county.Code = code

		si, ok := subIdx[subCounty]
		if !ok {
			county.SubCounties = append(county.SubCounties, models.SubCounty{Name: subCounty})
			si = len(county.SubCounties) - 1
			subIdx[subCounty] = si
		}
		sc := &county.SubCounties[si]

		conKey := subCounty + "/" + constituency
		ci, ok := conIdx[conKey]
		if !ok {
			sc.Constituencies = append(sc.Constituencies, models.Constituency{Name: constituency})
			ci = len(sc.Constituencies) - 1
			conIdx[conKey] = ci
		}
		sc.Constituencies[ci].Wards = append(sc.Constituencies[ci].Wards, ward)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate region rows: %w", err)
	}
	if len(county.SubCounties) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return county, nil
}
