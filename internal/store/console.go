package store

import (
	"context"
)

// RunQuery executes caller supplied SQL and returns every row as a column
// map. Text columns scanned as bytes are returned as strings.
func (s *Store) RunQuery(ctx context.Context, query string, params []interface{}) ([]map[string]interface{}, error) {
	rows, err := s.db.QueryxContext(ctx, query, params...)
	if err != nil {
		return nil, wrap(err, "run query")
	}
	defer rows.Close()

	result := []map[string]interface{}{}
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, wrap(err, "scan row")
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap(err, "rows error")
	}
	return result, nil
}
