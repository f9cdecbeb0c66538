package activity

// MultiWriter fans rows out to several writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...Writer) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Write sends a row to all writers.
func (mw *MultiWriter) Write(row Row) error {
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends rows to all writers, using batches where supported.
func (mw *MultiWriter) WriteBatch(rows []Row) error {
	for _, w := range mw.writers {
		if err := WriteBatch(w, rows); err != nil {
			return err
		}
	}
	return nil
}
