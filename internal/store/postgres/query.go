package postgres

import (
	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

// pageClause filters on created_at and pages newest first. A NULL bound
// or limit leaves that part of the clause inert.
const pageClause = `
	WHERE (@since::timestamptz IS NULL OR created_at >= @since)
	  AND (@until::timestamptz IS NULL OR created_at <= @until)
	ORDER BY created_at DESC
	LIMIT @limit OFFSET @offset`

// pageArgs binds opts to pageClause.
func pageArgs(opts domain.ListOpts) pgx.NamedArgs {
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}
	return pgx.NamedArgs{
		"since":  opts.Since,
		"until":  opts.Until,
		"limit":  limit,
		"offset": max(opts.Offset, 0),
	}
}
