package intake

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxSampleRows is how many data rows a preview carries.
const maxSampleRows = 5

// sniffDelimiter picks the delimiter with the most occurrences in the
// first line, preferring comma on a tie.
func sniffDelimiter(line string) rune {
	best, bestCount := ',', strings.Count(line, ",")
	for _, cand := range []rune{';', '\t'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

// previewCSV reads the header and a bounded row sample from a CSV file.
// The whole file is still consumed once to count total rows.
func previewCSV(path string) (headers []string, samples []map[string]string, totalRows int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	firstLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, nil, 0, err
	}
	if strings.TrimSpace(firstLine) == "" {
		return nil, nil, 0, fmt.Errorf("file is empty")
	}

	// Re-read from the start with the sniffed delimiter
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, 0, err
	}

	reader := csv.NewReader(bufio.NewReader(f))
	reader.Comma = sniffDelimiter(firstLine)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err = reader.Read()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("reading header row: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headers[i], "\ufeff"))
	}

	samples = make([]map[string]string, 0, maxSampleRows)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, 0, fmt.Errorf("reading row %d: %w", totalRows+2, err)
		}
		totalRows++
		if len(samples) < maxSampleRows {
			samples = append(samples, rowToMap(headers, record))
		}
	}

	return headers, samples, totalRows, nil
}

func rowToMap(headers, record []string) map[string]string {
	row := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(record) {
			row[h] = record[i]
		} else {
			row[h] = ""
		}
	}
	return row
}
