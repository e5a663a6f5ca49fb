package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/relq/internal/ir"
)

// toDriver converts an IR value to a database/sql argument. Decimals bind
// as float64 so that they compare numerically with NUMERIC columns.
func toDriver(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return nil, nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRString:
		return string(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.IRDecimal:
		f, err := val.Decimal().Float64()
		if err != nil {
			return nil, fmt.Errorf("decimal %s: %w", val, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot bind %T", v)
	}
}

// fromDriver converts a scanned column value to an IR value.
func fromDriver(v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}, nil
	case int64:
		return ir.IRInt(val), nil
	case float64:
		return ir.NewIRDecimal(strconv.FormatFloat(val, 'f', -1, 64))
	case string:
		return ir.IRString(val), nil
	case []byte:
		return ir.IRString(val), nil
	case bool:
		return ir.IRBool(val), nil
	case time.Time:
		return ir.IRString(val.UTC().Format(time.RFC3339Nano)), nil
	default:
		return nil, fmt.Errorf("unsupported column value %T", v)
	}
}

// sqliteType is the column type declared for a logical catalog type.
func sqliteType(logical string) (string, error) {
	switch logical {
	case "bool", "int", "bigint":
		return "INTEGER", nil
	case "decimal":
		return "NUMERIC", nil
	case "float":
		return "REAL", nil
	case "string", "datetime", "guid":
		return "TEXT", nil
	case "bytes":
		return "BLOB", nil
	}
	return "", fmt.Errorf("no SQLite type for %q", logical)
}
