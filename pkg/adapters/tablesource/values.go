package tablesource

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ekaya-inc/ekaya-erd/pkg/models"
)

// toValue converts a value scanned from a database driver into a cell.
// numeric marks columns whose driver returns numbers as raw bytes.
func toValue(v any, numeric bool) models.Value {
	switch x := v.(type) {
	case nil:
		return models.NullValue()
	case int64:
		return models.NumberValue(float64(x))
	case int32:
		return models.NumberValue(float64(x))
	case int16:
		return models.NumberValue(float64(x))
	case int8:
		return models.NumberValue(float64(x))
	case int:
		return models.NumberValue(float64(x))
	case uint64:
		return models.NumberValue(float64(x))
	case uint32:
		return models.NumberValue(float64(x))
	case float64:
		return floatValue(x)
	case float32:
		return floatValue(float64(x))
	case bool:
		return models.TextValue(strconv.FormatBool(x))
	case time.Time:
		return models.TextValue(x.UTC().Format(time.RFC3339Nano))
	case string:
		if numeric {
			return parseNumeric(x)
		}
		return models.TextValue(x)
	case []byte:
		if numeric {
			return parseNumeric(string(x))
		}
		return models.TextValue(string(x))
	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return models.NullValue()
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return models.NullValue()
		}
		return floatValue(f.Float64)
	case [16]byte:
		return models.TextValue(fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16]))
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return models.NumberValue(f)
	default:
		return models.TextValue(fmt.Sprint(x))
	}
}

// floatValue maps NaN to null, matching how CSV cells are read.
func floatValue(f float64) models.Value {
	if math.IsNaN(f) {
		return models.NullValue()
	}
	return models.NumberValue(f)
}

func parseNumeric(s string) models.Value {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return models.TextValue(s)
	}
	return floatValue(f)
}

// isNumericType reports whether a driver type name describes a numeric column.
func isNumericType(dbType string) bool {
	t := strings.ToUpper(dbType)
	t = strings.TrimPrefix(t, "UNSIGNED ")
	switch t {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT",
		"DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL", "MONEY", "SMALLMONEY",
		"INT2", "INT4", "INT8", "FLOAT4", "FLOAT8":
		return true
	}
	return false
}
