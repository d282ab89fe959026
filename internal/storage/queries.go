package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pable/squadstats/internal/model"
)

// Load reads the whole dataset, rows in insertion order.
func (db *DB) Load(ctx context.Context) (*model.Dataset, error) {
	d := &model.Dataset{}

	cols, err := db.conn.QueryContext(ctx, `SELECT name FROM stat_columns ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query stat columns: %w", err)
	}
	for cols.Next() {
		var name string
		if err := cols.Scan(&name); err != nil {
			cols.Close()
			return nil, err
		}
		d.Columns = append(d.Columns, name)
	}
	cols.Close()
	if err := cols.Err(); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT row_id, user, match_id, start_time, end_time, map
		FROM matches ORDER BY row_id`)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	byID := make(map[int64]int)
	for rows.Next() {
		var (
			rowID int64
			r     model.Row
			id    string
		)
		if err := rows.Scan(&rowID, &r.User, &id, &r.StartTime, &r.EndTime, &r.Map); err != nil {
			rows.Close()
			return nil, err
		}
		r.MatchID = model.ParseMatchID(id)
		r.Stats = make(map[string]float64)
		byID[rowID] = len(d.Rows)
		d.Rows = append(d.Rows, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats, err := db.conn.QueryContext(ctx, `SELECT row_id, stat, value FROM match_stats`)
	if err != nil {
		return nil, fmt.Errorf("query match_stats: %w", err)
	}
	defer stats.Close()
	for stats.Next() {
		var (
			rowID int64
			stat  string
			value float64
		)
		if err := stats.Scan(&rowID, &stat, &value); err != nil {
			return nil, err
		}
		if i, ok := byID[rowID]; ok {
			d.Rows[i].Stats[stat] = value
		}
	}
	return d, stats.Err()
}

// Save replaces the stored dataset with d in a single transaction.
func (db *DB) Save(ctx context.Context, d *model.Dataset) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"match_stats", "matches", "stat_columns"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	colStmt, err := tx.PrepareContext(ctx, `INSERT INTO stat_columns(position, name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer colStmt.Close()
	for i, c := range d.Columns {
		if _, err := colStmt.ExecContext(ctx, i, c); err != nil {
			return fmt.Errorf("insert column %q: %w", c, err)
		}
	}

	matchStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches(row_id, user, match_id, start_time, end_time, map)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer matchStmt.Close()

	statStmt, err := tx.PrepareContext(ctx, `INSERT INTO match_stats(row_id, stat, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer statStmt.Close()

	for i, r := range d.Rows {
		if _, err := matchStmt.ExecContext(ctx, i, r.User, string(r.MatchID), r.StartTime, r.EndTime, r.Map); err != nil {
			return fmt.Errorf("insert match %s for %s: %w", r.MatchID, r.User, err)
		}
		for stat, v := range r.Stats {
			if _, err := statStmt.ExecContext(ctx, i, stat, v); err != nil {
				return fmt.Errorf("insert stat %s for row %d: %w", stat, i, err)
			}
		}
	}
	return tx.Commit()
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = formatValue(v)
		}
		out = append(out, rec)
	}
	return cols, out, rows.Err()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
