package columnar

// RecordBatch is a set of named columns of equal length.
type RecordBatch struct {
	nrows int64
	cols  []*Column
}

func NewRecordBatch(nrows int64, cols []*Column) RecordBatch {
	return RecordBatch{
		nrows: nrows,
		cols:  cols,
	}
}

func (rb RecordBatch) NumRows() int64 {
	return rb.nrows
}

func (rb RecordBatch) NumCols() int64 {
	return int64(len(rb.cols))
}

func (rb RecordBatch) Column(i int64) *Column {
	return rb.cols[i]
}

// ColumnByName returns the first column named name.
func (rb RecordBatch) ColumnByName(name string) (*Column, bool) {
	for _, col := range rb.cols {
		if col.Name() == name {
			return col, true
		}
	}
	return nil, false
}

// Release releases every column of the batch.
func (rb RecordBatch) Release() {
	for _, col := range rb.cols {
		col.Release()
	}
}
