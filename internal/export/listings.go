package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/D-keii/NextNation-RentSafe/internal/properties"
)

// Format is a listings export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

var columns = []string{
	"ID", "Title", "Address", "City", "State", "Housing Type",
	"Price (RM)", "Bedrooms", "Bathrooms", "Size (sq ft)",
	"Photos", "Available", "Status", "Rejection Reason",
}

func row(v properties.ListingView) []interface{} {
	return []interface{}{
		v.ID, v.Title, v.Address, v.City, v.State, string(v.HousingType),
		v.Price, v.Bedrooms, v.Bathrooms, v.Size,
		v.PhotoCount, v.Available, statusLabel(v.DisplayStatus), v.RejectionReason,
	}
}

func statusLabel(s properties.DisplayStatus) string {
	switch s {
	case properties.DisplayVerified:
		return "Verified"
	case properties.DisplayRejected:
		return "Rejected"
	case properties.DisplayVerificationPending:
		return "Verification Pending"
	default:
		return "Unverified"
	}
}

// WriteListings writes views to w in the given format.
func WriteListings(w io.Writer, format Format, views []properties.ListingView) error {
	if format == FormatXLSX {
		return writeXLSX(w, views)
	}
	return writeCSV(w, views)
}

func writeCSV(w io.Writer, views []properties.ListingView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, v := range views {
		values := row(v)
		record := make([]string, len(values))
		for i, val := range values {
			record[i] = formatValue(val)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprintf("%v", v)
	}
}

const sheetName = "Listings"

func writeXLSX(w io.Writer, views []properties.ListingView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	priceFmt := "#,##0.00"
	priceStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &priceFmt})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}

	widths := make([]float64, len(columns))
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, col); err != nil {
			return err
		}
		widths[i] = float64(len(col))
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for r, v := range views {
		for c, val := range row(v) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if b, ok := val.(bool); ok {
				val = formatValue(b)
			}
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			if n := float64(len(formatValue(val))) * 1.2; n > widths[c] {
				widths[c] = n
			}
		}
		priceCell, _ := excelize.CoordinatesToCellName(7, r+2)
		if err := f.SetCellStyle(sheetName, priceCell, priceCell, priceStyle); err != nil {
			return err
		}
	}

	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		// Min width 10, max width 50
		width = min(max(width, 10), 50)
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if len(views) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(columns), len(views)+1)
		if err := f.AutoFilter(sheetName, "A1:"+lastCell, nil); err != nil {
			return err
		}
	}

	return f.Write(w)
}
