package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/semafind/semaknn/models"
)

// ReadCSV parses numeric feature rows. If labelColumn is not negative that
// column is read as the label instead of a feature. A first row that does not
// parse as numbers is treated as a header and skipped.
func ReadCSV(name string, r io.Reader, labelColumn int) (Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true
	// ---------------------------
	var data []float64
	var labels []string
	rows, cols := 0, -1
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("%w: line %d: %w", ErrInvalidDataset, line, err)
		}
		if labelColumn >= len(record) {
			return Dataset{}, fmt.Errorf("%w: line %d: label column %d out of range", ErrInvalidDataset, line, labelColumn)
		}
		// ---------------------------
		rowStart := len(data)
		var parseErr error
		for i, field := range record {
			if i == labelColumn {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				parseErr = fmt.Errorf("%w: line %d column %d: %w", ErrInvalidDataset, line, i, err)
				break
			}
			data = append(data, v)
		}
		if parseErr != nil {
			if line == 1 {
				// Header row
				data = data[:rowStart]
				continue
			}
			return Dataset{}, parseErr
		}
		// ---------------------------
		width := len(data) - rowStart
		if cols == -1 {
			cols = width
		} else if width != cols {
			return Dataset{}, fmt.Errorf("%w: line %d has %d features, expected %d", ErrInvalidDataset, line, width, cols)
		}
		if labelColumn >= 0 {
			labels = append(labels, strings.TrimSpace(record[labelColumn]))
		}
		rows++
	}
	if cols <= 0 {
		return Dataset{}, fmt.Errorf("%w: no feature rows", ErrInvalidDataset)
	}
	return New(name, models.Matrix{Rows: rows, Cols: cols, Data: data}, labels)
}
