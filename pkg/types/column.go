package types

// ColumnInfo describes one column of a result batch.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
}

// Row is one row of connector output. Values are driver-native Go values.
type Row []interface{}
