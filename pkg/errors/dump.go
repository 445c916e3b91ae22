package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/multierr"
)

// ErrorDump is a log-friendly snapshot of an error chain.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
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
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	walk(err, func(e error) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	})
	d.fillPostgres(err)
	return d
}

// Fields flattens the dump for structured logging, dropping empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	add := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	add("error_code", string(d.Code))
	add("pg_code", d.PGCode)
	add("pg_constraint", d.PGConstraint)
	add("pg_table", d.PGTable)
	add("pg_column", d.PGColumn)
	add("pg_detail", d.PGDetail)
	add("pg_message", d.PGMessage)
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	return fields
}

// walk visits err and its causes depth first. Joined and multierr errors
// fan out into each member.
func walk(err error, visit func(error)) {
	if err == nil {
		return
	}
	visit(err)
	if members := multierr.Errors(err); len(members) > 1 {
		for _, member := range members {
			walk(member, visit)
		}
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, member := range joined.Unwrap() {
			walk(member, visit)
		}
		return
	}
	walk(stdErrors.Unwrap(err), visit)
}

func (d *ErrorDump) fillPostgres(err error) {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		d.PGCode, d.PGMessage, d.PGDetail = pgxErr.Code, pgxErr.Message, pgxErr.Detail
		d.PGTable, d.PGColumn, d.PGConstraint = pgxErr.TableName, pgxErr.ColumnName, pgxErr.ConstraintName
		return
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		d.PGCode, d.PGMessage, d.PGDetail = string(pqErr.Code), pqErr.Message, pqErr.Detail
		d.PGTable, d.PGColumn, d.PGConstraint = pqErr.Table, pqErr.Column, pqErr.Constraint
	}
}
