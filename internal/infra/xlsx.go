package infra

import (
	"bytes"
	"fmt"

	"mypostelma/internal/dto"

	"github.com/xuri/excelize/v2"
)

// BuildSessionWorkbook renders a session report as an XLSX workbook with a
// "Synthese" sheet and a "Mouvements" sheet. Amounts are written as numbers
// in major units so spreadsheets can sum them.
func BuildSessionWorkbook(report *dto.SessionReportResponse) ([]byte, error) {
	const (
		summarySheet   = "Synthese"
		movementsSheet = "Mouvements"
	)
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(movementsSheet); err != nil {
		return nil, fmt.Errorf("xlsx: new sheet: %w", err)
	}

	s := report.Session
	st := report.Statistics
	num := func(v interface{ InexactFloat64() float64 }) float64 { return v.InexactFloat64() }

	rows := [][]any{
		{"Session", s.ID},
		{"Boutique", s.LocationName},
		{"Statut", s.Status},
		{"Devise", st.Currency},
		{"Ouverture", s.OpenedAt.Format("2006-01-02 15:04:05")},
		{"Fond de caisse", num(st.OpeningBalance)},
		{"Ventes", num(st.TotalSales)},
		{"Entrées", num(st.TotalEntries)},
		{"Sorties", num(st.TotalExits)},
		{"Solde théorique", num(st.TheoreticalBalance)},
		{"Mouvements", st.MovementCount},
	}
	if s.ClosedAt != nil {
		rows = append(rows, []any{"Fermeture", s.ClosedAt.Format("2006-01-02 15:04:05")})
	}
	if s.ClosingCountedBalance != nil {
		rows = append(rows, []any{"Montant compté", num(*s.ClosingCountedBalance)})
	}
	if s.Variance != nil {
		rows = append(rows, []any{"Écart", num(*s.Variance)})
	}
	if s.VarianceFlag != nil {
		rows = append(rows, []any{"Niveau d'écart", *s.VarianceFlag})
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return nil, fmt.Errorf("xlsx: summary row: %w", err)
		}
	}

	header := []any{"Date", "Type", "Moyen", "Montant", "Libellé", "Référence", "Identifiant"}
	if err := f.SetSheetRow(movementsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx: header: %w", err)
	}
	for i, m := range report.Movements {
		ref := ""
		if m.Reference != nil {
			ref = *m.Reference
		}
		amount := num(m.Amount)
		if m.Kind == "exit" {
			amount = -amount
		}
		row := []any{m.CreatedAt.Format("2006-01-02 15:04:05"), m.Kind, m.PaymentMethod, amount, m.Description, ref, m.ID}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(movementsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx: movement row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx: write: %w", err)
	}
	return buf.Bytes(), nil
}
