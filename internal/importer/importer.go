package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	xlsContentType  = "application/vnd.ms-excel"
)

var (
	ErrUnsupportedFormat = errors.New("please upload a valid spreadsheet (.xlsx or .csv)")
	ErrEmptyWorkbook     = errors.New("workbook has no sheets")
)

// Row is one data row of an attendee sheet. Number is the 1-based row
// number as shown by a spreadsheet program, header included.
type Row struct {
	Number int
	Name   string
	Email  string
	Phone  string
	Open1  string
	Open2  string
	Open3  string
}

// Blank reports whether the row carries none of the identifying columns.
func (r Row) Blank() bool {
	return r.Name == "" && r.Email == "" && r.Phone == ""
}

// Read parses an uploaded sheet. The first row is a header and is dropped.
// Columns are name, email, phone, open1, open2, open3.
func Read(filename, contentType string, r io.Reader) ([]Row, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := normaliseContentType(contentType)

	switch ext {
	case ".xlsx":
		if !acceptable(ct, xlsxContentType, xlsContentType) {
			return nil, ErrUnsupportedFormat
		}
		return readXLSX(r)
	case ".csv":
		if !acceptable(ct, "text/csv", "application/csv", "text/plain", xlsContentType) {
			return nil, ErrUnsupportedFormat
		}
		return readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return toRows(records), nil
}

// readCSV numbers rows by their physical line, since encoding/csv skips
// empty lines.
func readCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []Row
	header := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		line, _ := cr.FieldPos(0)
		out = append(out, toRow(line, rec))
	}
	return out, nil
}

func toRows(records [][]string) []Row {
	if len(records) <= 1 {
		return nil
	}
	out := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		out = append(out, toRow(i+2, rec))
	}
	return out
}

func toRow(number int, rec []string) Row {
	return Row{
		Number: number,
		Name:   cell(rec, 0),
		Email:  cell(rec, 1),
		Phone:  cell(rec, 2),
		Open1:  cell(rec, 3),
		Open2:  cell(rec, 4),
		Open3:  cell(rec, 5),
	}
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(rec[i], "\ufeff"))
}

func normaliseContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// acceptable allows a missing or generic content type; browsers are not
// consistent about spreadsheet MIME types.
func acceptable(ct string, allowed ...string) bool {
	if ct == "" || ct == "application/octet-stream" {
		return true
	}
	for _, a := range allowed {
		if ct == a {
			return true
		}
	}
	return false
}
