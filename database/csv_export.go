// database/csv_export.go
package database

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
)

// ExportCSV writes a canonical dataset to a CSV file next to its Parquet
// table, for consumers that want the data without a Parquet reader. Same
// temp-file-then-rename discipline as the Parquet writes.
func ExportCSV[T any](dir, name string, rows []T) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal %s to CSV: %w", name, err)
	}

	path := filepath.Join(dir, name+".csv")
	tmp, err := os.CreateTemp(dir, "."+name+"-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write CSV for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", tmp.Name(), err)
	}

	log.Printf("CSV exported: %s (%d rows)", path, len(rows))
	return nil
}
