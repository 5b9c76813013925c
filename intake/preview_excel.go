package intake

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// previewExcel reads the header and a bounded row sample from the first
// sheet of an XLS(X) workbook.
func previewExcel(path string) (headers []string, samples []map[string]string, totalRows int, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, 0, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, 0, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, 0, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	headers = rows[0]
	samples = make([]map[string]string, 0, maxSampleRows)
	for _, record := range rows[1:] {
		totalRows++
		if len(samples) < maxSampleRows {
			samples = append(samples, rowToMap(headers, record))
		}
	}

	return headers, samples, totalRows, nil
}
