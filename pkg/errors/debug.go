package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of an error chain. It never reaches clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Retryable  bool     `json:"retryable,omitempty"`
	Details    any      `json:"details,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error(), Retryable: Retryable(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.code
		d.Details = typed.details
	}
	for link := err; link != nil; link = stdErrors.Unwrap(link) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", link, link))
	}
	d.fillPostgres(err)
	return d
}

// fillPostgres copies server fields from whichever driver produced err. gorm
// on pgx yields *pgconn.PgError; database/sql paths through lib/pq yield
// *pq.Error.
func (d *ErrorDump) fillPostgres(err error) {
	if pgxErr := (*pgconn.PgError)(nil); stdErrors.As(err, &pgxErr) {
		d.PGCode, d.PGMessage, d.PGDetail = pgxErr.Code, pgxErr.Message, pgxErr.Detail
		d.PGTable, d.PGColumn, d.PGConstraint = pgxErr.TableName, pgxErr.ColumnName, pgxErr.ConstraintName
		return
	}
	if pqErr := (*pq.Error)(nil); stdErrors.As(err, &pqErr) {
		d.PGCode, d.PGMessage, d.PGDetail = string(pqErr.Code), pqErr.Message, pqErr.Detail
		d.PGTable, d.PGColumn, d.PGConstraint = pqErr.Table, pqErr.Column, pqErr.Constraint
	}
}
