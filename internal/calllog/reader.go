package calllog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

// readRows decodes an uploaded spreadsheet into raw string rows. The format is
// chosen by file extension, falling back to content sniffing.
func readRows(name string, r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zipMagic))

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xltx":
		return readXLSX(br)
	case ".xls":
		return nil, fmt.Errorf("%w: legacy .xls, save the file as .xlsx or .csv", ErrUnsupportedFormat)
	case ".csv", ".tsv", ".txt":
		return readCSV(br)
	}
	if bytes.Equal(head, zipMagic) {
		return readXLSX(br)
	}
	return readCSV(br)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// detectDelimiter picks the most frequent of ',', ';' and tab on the first line.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// splitHeader returns the first row with any non-blank cell and the rows after it.
func splitHeader(rows [][]string) ([]string, [][]string) {
	for i, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return row, rows[i+1:]
			}
		}
	}
	return nil, nil
}
