/*
Package sqldataset provides loading of training datasets from SQL
databases. An Adapter abstracts the specific engine; the
sqlite3adapter and pgadapter subpackages provide implementations for
SQLite3 files and PostgreSQL databases.
*/
package sqldataset

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/MaiRajborirug/SPORF/dataset"
)

/*
Adapter is an interface providing access to the database a dataset is
read from, together with the engine-specific quoting of the table
identifier.
*/
type Adapter interface {
	// DB returns the open database handle the dataset is read from.
	DB() *sql.DB
	// QuoteIdentifier quotes a table or column name for the engine,
	// or returns an error if the name cannot be used.
	QuoteIdentifier(name string) (string, error)
}

/*
Read takes a context, an Adapter, the name of a table and the name of
its label column and returns the dataset read from the table or an
error. Every column but the label column is read as a float64
feature, with NULL mapping to NaN; the label column must hold integer
class labels. Rows are read in an engine-determined order, so tables
should carry an ordering column when reproducible sample indices
matter.
*/
func Read(ctx context.Context, a Adapter, table, labelColumn string) (*dataset.Dataset, error) {
	quotedTable, err := a.QuoteIdentifier(table)
	if err != nil {
		return nil, fmt.Errorf("quoting table name: %v", err)
	}
	rows, err := a.DB().QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", quotedTable))
	if err != nil {
		return nil, fmt.Errorf("querying samples from %s: %v", table, err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %v", table, err)
	}
	labelIndex := -1
	for i, c := range columns {
		if c == labelColumn {
			labelIndex = i
			break
		}
	}
	if labelIndex < 0 {
		return nil, fmt.Errorf("label column %s not found in table %s", labelColumn, table)
	}
	var x [][]float64
	var y []int
	values := make([]interface{}, len(columns))
	for i := range values {
		if i == labelIndex {
			values[i] = new(int64)
		} else {
			values[i] = new(sql.NullFloat64)
		}
	}
	for rows.Next() {
		if err := rows.Scan(values...); err != nil {
			return nil, fmt.Errorf("scanning sample row %d: %v", len(x), err)
		}
		features := make([]float64, 0, len(columns)-1)
		for i, v := range values {
			if i == labelIndex {
				y = append(y, int(*v.(*int64)))
				continue
			}
			nf := v.(*sql.NullFloat64)
			if nf.Valid {
				features = append(features, nf.Float64)
			} else {
				features = append(features, math.NaN())
			}
		}
		x = append(x, features)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating samples of %s: %v", table, err)
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("table %s has no samples", table)
	}
	return dataset.New(x, y)
}

// ValidIdentifier rejects names that cannot be safely quoted with
// double quotes. Adapters share it from their QuoteIdentifier
// implementations.
func ValidIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	if strings.ContainsAny(name, `"`) {
		return fmt.Errorf(`identifier '%s' contains invalid character '"'`, name)
	}
	return nil
}
