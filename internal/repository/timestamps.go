package repository

import (
	"database/sql"
	"time"
)

// Bookkeeping times are stored as unix milliseconds. Trajectory start and end
// keep the microsecond precision of the source records.

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
