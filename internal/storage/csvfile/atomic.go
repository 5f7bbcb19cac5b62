package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/hetulpatel/hedj/internal/fileutil"
)

func writeCSV(path string, header []string, rows [][]string) error {
	return fileutil.WriteAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	})
}
