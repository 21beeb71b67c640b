package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGInfo is what a Postgres driver error tells us about the failed statement.
// Both pgx and lib/pq errors are understood.
type PGInfo struct {
	Code       string `json:"code"`
	Class      string `json:"class"`
	Table      string `json:"table,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ErrorDump flattens an error chain for logging. It is never sent to clients.
type ErrorDump struct {
	Message    string   `json:"message"`
	Code       Code     `json:"code,omitempty"`
	HTTPStatus int      `json:"http_status,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	PG         *PGInfo  `json:"pg,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{Message: err.Error(), PG: postgresInfo(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
		d.HTTPStatus = MetadataFor(d.Code).HTTPStatus
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	return d
}

// Fields is the dump as structured log fields.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error_code": d.Code, "error_chain": d.Chain}
	if d.PG != nil {
		fields["pg_code"] = d.PG.Code
		fields["pg_class"] = d.PG.Class
		fields["pg_table"] = d.PG.Table
		fields["pg_constraint"] = d.PG.Constraint
		fields["pg_detail"] = d.PG.Detail
	}
	return fields
}

func postgresInfo(err error) *PGInfo {
	var info *PGInfo
	if pgxErr := (*pgconn.PgError)(nil); errors.As(err, &pgxErr) {
		info = &PGInfo{Code: pgxErr.Code, Table: pgxErr.TableName, Constraint: pgxErr.ConstraintName, Detail: pgxErr.Detail}
	} else if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) {
		info = &PGInfo{Code: string(pqErr.Code), Table: pqErr.Table, Constraint: pqErr.Constraint, Detail: pqErr.Detail}
	}
	if info == nil || info.Code == "" {
		return nil
	}
	info.Class = "other"
	for _, c := range pgClasses {
		if c.match(info.Code) {
			info.Class = c.name
			break
		}
	}
	return info
}

var pgClasses = []struct {
	name  string
	match func(string) bool
}{
	{"integrity_constraint_violation", pgerrcode.IsIntegrityConstraintViolation},
	{"transaction_rollback", pgerrcode.IsTransactionRollback},
	{"connection_exception", pgerrcode.IsConnectionException},
	{"data_exception", pgerrcode.IsDataException},
	{"insufficient_resources", pgerrcode.IsInsufficientResources},
}
