package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	period "settlement-periods/internal/period/domain"
)

// BuildTempTransactionsXLSX renders the period's staged transactions as a
// spreadsheet for review.
func BuildTempTransactionsXLSX(p *period.Period, txs []period.TempTransaction) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	txSheet := "transactions"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(txSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Period Temp Transactions")
	_ = f.SetCellValue(summarySheet, "A3", "Number")
	_ = f.SetCellValue(summarySheet, "B3", p.Number)
	_ = f.SetCellValue(summarySheet, "A4", "Range")
	_ = f.SetCellValue(summarySheet, "B4", p.FullPeriod())
	_ = f.SetCellValue(summarySheet, "A5", "Status")
	_ = f.SetCellValue(summarySheet, "B5", string(p.Status))
	_ = f.SetCellValue(summarySheet, "A6", "Rows")
	_ = f.SetCellValue(summarySheet, "B6", len(txs))

	_ = f.SetCellValue(txSheet, "A1", "Account")
	_ = f.SetCellValue(txSheet, "B1", "Kind")
	_ = f.SetCellValue(txSheet, "C1", "Amount")
	_ = f.SetCellValue(txSheet, "D1", "Created")
	for i, tx := range txs {
		row := i + 2
		_ = f.SetCellValue(txSheet, fmt.Sprintf("A%d", row), tx.AccountID)
		_ = f.SetCellValue(txSheet, fmt.Sprintf("B%d", row), tx.Kind)
		_ = f.SetCellValue(txSheet, fmt.Sprintf("C%d", row), tx.Amount)
		_ = f.SetCellValue(txSheet, fmt.Sprintf("D%d", row), tx.CreatedAt.Format(time.RFC3339))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildCurrentPropertiesXLSX renders the live account balances as a
// spreadsheet.
func BuildCurrentPropertiesXLSX(props []period.AccountProperty) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "properties"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Account")
	_ = f.SetCellValue(sheet, "B1", "Alias")
	_ = f.SetCellValue(sheet, "C1", "Value")
	for i, prop := range props {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), prop.AccountID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), prop.Alias)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), prop.Value)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildPeriodSummaryPDF renders a one-page period summary with the status
// log as a table, newest entry first.
func BuildPeriodSummaryPDF(p *period.Period, logs []period.StatusLog) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Settlement Period Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Number: %s", p.Number))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Range: %s", p.FullPeriod()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", p.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Created: %s", p.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "From", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "To", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "User", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "At", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, entry := range logs {
		user := "system"
		if entry.UserID != nil {
			user = fmt.Sprintf("%d", *entry.UserID)
		}
		pdf.CellFormat(40, 6, string(entry.StatusFrom), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, string(entry.StatusTo), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, user, "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, entry.CreatedAt.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
