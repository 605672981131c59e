package store

import (
	"database/sql"
	"fmt"
	"time"
)

// tsLayout is fixed width in UTC so that TEXT comparison in SQL orders
// chronologically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

type scanner interface {
	Scan(...any) error
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
