package zones

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Load(ctx context.Context) ([]Zone, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, zips, COALESCE(polygon, '[]') FROM zones ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Zone
	for rows.Next() {
		var z Zone
		var poly []byte
		if err := rows.Scan(&z.ID, &z.Name, &z.ZIPs, &poly); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(poly, &z.Polygon); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}
