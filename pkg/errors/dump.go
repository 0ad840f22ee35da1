package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorDump is the log-only view of a failure. It never reaches clients.
type ErrorDump struct {
	Message string
	Code    Code
	Chain   []string

	// Postgres diagnostics, filled when the chain holds a pgx *pgconn.PgError.
	PGCode       string
	PGConstraint string
	PGTable      string
	PGColumn     string
	PGDetail     string
	PGMessage    string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for link := err; link != nil; link = stdErrors.Unwrap(link) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", link, link))
	}

	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		d.PGCode, d.PGMessage, d.PGDetail = pgErr.Code, pgErr.Message, pgErr.Detail
		d.PGTable, d.PGColumn, d.PGConstraint = pgErr.TableName, pgErr.ColumnName, pgErr.ConstraintName
	}
	return d
}

// Fields flattens the dump for structured logging, omitting empty
// Postgres fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.Message,
		"error_code":  string(d.Code),
		"error_chain": d.Chain,
	}
	for key, val := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_detail":     d.PGDetail,
		"pg_message":    d.PGMessage,
	} {
		if val != "" {
			fields[key] = val
		}
	}
	return fields
}
