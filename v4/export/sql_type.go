// Copyright 2020 PingCAP, Inc. Licensed under Apache-2.0.

package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/godror/godror"
	"github.com/shopspring/decimal"
)

// columnClass groups database column types by how their values are exported.
type columnClass int

const (
	classText columnClass = iota
	classNumber
	classLargeText
	classBinary
)

var colTypeClassMap = map[string]columnClass{}

func init() {
	initColTypeClassMap()
}

func initColTypeClassMap() {
	for _, s := range dataTypeString {
		colTypeClassMap[s] = classText
	}
	for _, s := range dataTypeNum {
		colTypeClassMap[s] = classNumber
	}
	for _, s := range dataTypeLargeText {
		colTypeClassMap[s] = classLargeText
	}
	for _, s := range dataTypeBin {
		colTypeClassMap[s] = classBinary
	}
}

var dataTypeString = []string{
	"CHAR", "NCHAR", "VARCHAR", "VARCHAR2", "NVARCHAR2", "LONG", "ROWID", "UROWID",
	"DATE", "TIMESTAMP", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITH LOCAL TIME ZONE",
	"INTERVAL YEAR TO MONTH", "INTERVAL DAY TO SECOND", "XMLTYPE",
}

var dataTypeNum = []string{
	"NUMBER", "FLOAT", "BINARY_FLOAT", "BINARY_DOUBLE",
	"INTEGER", "INT", "SMALLINT", "DECIMAL", "NUMERIC", "REAL", "DOUBLE PRECISION",
}

var dataTypeLargeText = []string{
	"CLOB", "NCLOB", "OCICLOBLOCATOR",
}

var dataTypeBin = []string{
	"BLOB", "RAW", "LONG RAW", "BFILE", "OCIBLOBLOCATOR",
}

// classifyColumnType maps a driver reported type name onto its class.
// Unknown types are exported as text.
func classifyColumnType(tp string) columnClass {
	tp = strings.ToUpper(strings.TrimSpace(tp))
	if c, ok := colTypeClassMap[tp]; ok {
		return c
	}
	if strings.Contains(tp, "CLOB") {
		return classLargeText
	}
	return classText
}

// IsLargeTextType reports whether columns of the type hold large text.
func IsLargeTextType(tp string) bool {
	return classifyColumnType(tp) == classLargeText
}

// ColumnReceiver receives one column of a scanned row.
type ColumnReceiver interface {
	RowReceiver
	// Value converts the scanned datum.
	Value() (Value, error)
}

// OraTypeValue scans any column into an untyped holder.
type OraTypeValue struct {
	class columnClass
	raw   interface{}
}

// BindAddress implements RowReceiver.BindAddress
func (s *OraTypeValue) BindAddress(arg []interface{}) {
	arg[0] = &s.raw
}

// Value implements ColumnReceiver.Value
func (s *OraTypeValue) Value() (Value, error) {
	return convertValue(s.class, s.raw)
}

const timeLayout = "2006-01-02 15:04:05.999999999"

// convertValue turns what the driver produced for one column into a Value.
func convertValue(class columnClass, raw interface{}) (Value, error) {
	switch v := raw.(type) {
	case nil:
		return NullValue(), nil
	case *godror.Lob:
		if v == nil || v.Reader == nil {
			return NullValue(), nil
		}
		if class == classLargeText || v.IsClob {
			return LargeTextValue(newReaderLob(v.Reader)), nil
		}
		b, err := io.ReadAll(v.Reader)
		if err != nil {
			return Value{}, err
		}
		return ScalarValue(fmt.Sprintf("%X", b), false), nil
	case io.Reader:
		if class == classBinary {
			b, err := io.ReadAll(v)
			if err != nil {
				return Value{}, err
			}
			return ScalarValue(fmt.Sprintf("%X", b), false), nil
		}
		return LargeTextValue(newReaderLob(v)), nil
	case godror.Number:
		return ScalarValue(normalizeNumber(string(v)), true), nil
	case string:
		if class == classLargeText {
			return LargeTextValue(newStringLob(v)), nil
		}
		if class == classNumber {
			return ScalarValue(normalizeNumber(v), true), nil
		}
		return ScalarValue(v, false), nil
	case []byte:
		switch class {
		case classLargeText:
			return LargeTextValue(newStringLob(string(v))), nil
		case classBinary:
			return ScalarValue(fmt.Sprintf("%X", v), false), nil
		case classNumber:
			return ScalarValue(normalizeNumber(string(v)), true), nil
		}
		return ScalarValue(string(v), false), nil
	case int64:
		return ScalarValue(strconv.FormatInt(v, 10), true), nil
	case int:
		return ScalarValue(strconv.Itoa(v), true), nil
	case int32:
		return ScalarValue(strconv.FormatInt(int64(v), 10), true), nil
	case uint64:
		return ScalarValue(strconv.FormatUint(v, 10), true), nil
	case float64:
		return ScalarValue(strconv.FormatFloat(v, 'f', -1, 64), true), nil
	case float32:
		return ScalarValue(strconv.FormatFloat(float64(v), 'f', -1, 32), true), nil
	case bool:
		return ScalarValue(strconv.FormatBool(v), false), nil
	case time.Time:
		return ScalarValue(v.Format(timeLayout), false), nil
	default:
		return ScalarValue(fmt.Sprint(v), class == classNumber), nil
	}
}

// normalizeNumber renders Oracle NUMBER text canonically, leaving values
// that do not parse as decimals untouched.
func normalizeNumber(s string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return d.String()
}

// MakeRowReceiver builds the receiver of a row with the given column types.
func MakeRowReceiver(colTypes []string) RowReceiverArr {
	receivers := make([]ColumnReceiver, len(colTypes))
	for i, tp := range colTypes {
		receivers[i] = &OraTypeValue{class: classifyColumnType(tp)}
	}
	return RowReceiverArr{receivers: receivers}
}

// RowReceiverArr is the combined RowReceiver array
type RowReceiverArr struct {
	receivers []ColumnReceiver
}

// BindAddress implements RowReceiver.BindAddress
func (r RowReceiverArr) BindAddress(args []interface{}) {
	for i := range args {
		r.receivers[i].BindAddress(args[i : i+1])
	}
}

// Values converts the scanned row. On failure the large text handles
// already produced are closed.
func (r RowReceiverArr) Values() ([]Value, error) {
	values := make([]Value, len(r.receivers))
	for i, receiver := range r.receivers {
		v, err := receiver.Value()
		if err != nil {
			closeValues(values[:i])
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func closeValues(values []Value) {
	for _, v := range values {
		if v.Kind == ValueLargeText && v.Large != nil {
			_ = v.Large.Close()
		}
	}
}
