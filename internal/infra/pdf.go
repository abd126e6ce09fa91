package infra

// Z-report (closing report) rendered with go-pdf/fpdf.
// A5 portrait page with:
//   - location and session header
//   - opening float, totals by kind, theoretical / counted / variance
//   - sales and net per payment method
//   - the full movement ledger
//
// The file is saved to storagePath/z_{session_id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"mypostelma/internal/dto"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

var kindLabels = map[string]string{
	"sale":  "Vente",
	"entry": "Entrée",
	"exit":  "Sortie",
}

// GenerateClosureReportPDF writes the Z-report of a session and returns its path.
func GenerateClosureReportPDF(report *dto.SessionReportResponse, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, ClosureReportFileName(report.Session.ID))

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	// Core fonts are cp1252; translate UTF-8 so accents render.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 20
	s := report.Session
	st := report.Statistics
	money := func(d decimal.Decimal) string { return d.String() + " " + st.Currency }

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr("Rapport Z - Caisse journalière"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	location := s.LocationName
	if location == "" {
		location = s.LocationID
	}
	pdf.CellFormat(contentW, 5, tr("Boutique : "+location), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, "Session "+s.ID, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	line := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(contentW*0.6, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 5, tr(value), "", 1, "R", false, 0, "")
	}
	separator := func() {
		pdf.Ln(1)
		pdf.Line(10, pdf.GetY(), pageW-10, pdf.GetY())
		pdf.Ln(2)
	}

	line("Ouverture", s.OpenedAt.Format("02/01/2006 15:04"), false)
	if s.ClosedAt != nil {
		line("Fermeture", s.ClosedAt.Format("02/01/2006 15:04"), false)
	}
	separator()

	// ── Totals ───────────────────────────────────────────────────────────────
	line("Fond de caisse", money(st.OpeningBalance), false)
	line("Ventes", money(st.TotalSales), false)
	line("Entrées", money(st.TotalEntries), false)
	line("Sorties", money(st.TotalExits), false)
	line("Solde théorique", money(st.TheoreticalBalance), true)
	if s.ClosingCountedBalance != nil {
		line("Montant compté", money(*s.ClosingCountedBalance), true)
	}
	if s.Variance != nil {
		flag := ""
		if s.VarianceFlag != nil {
			flag = " (" + *s.VarianceFlag + ")"
		}
		line("Écart"+flag, money(*s.Variance), true)
	}
	separator()

	// ── Per payment method ───────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW*0.4, 5, "Moyen", "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.3, 5, "Ventes", "B", 0, "R", false, 0, "")
	pdf.CellFormat(contentW*0.3, 5, "Net", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, method := range []string{"cash", "mobile_money", "card", "check", "transfer", "other"} {
		sales, net := st.SalesByPaymentMethod[method], st.NetByPaymentMethod[method]
		if sales.IsZero() && net.IsZero() {
			continue
		}
		pdf.CellFormat(contentW*0.4, 5, method, "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.3, 5, sales.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(contentW*0.3, 5, net.String(), "", 1, "R", false, 0, "")
	}
	separator()

	// ── Ledger ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW*0.18, 5, "Heure", "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.16, 5, "Type", "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.46, 5, tr("Libellé"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.20, 5, "Montant", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	for _, m := range report.Movements {
		desc := m.Description
		if desc == "" && m.Reference != nil {
			desc = *m.Reference
		}
		if r := []rune(desc); len(r) > 34 {
			desc = string(r[:33]) + "…"
		}
		amount := m.Amount.String()
		if m.Kind == "exit" {
			amount = "-" + amount
		}
		pdf.CellFormat(contentW*0.18, 4.5, m.CreatedAt.Format("15:04:05"), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.16, 4.5, tr(kindLabels[m.Kind]), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.46, 4.5, tr(desc), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.20, 4.5, amount, "", 1, "R", false, 0, "")
	}

	if s.ClosingNotes != nil {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(contentW, 4, tr("Notes : "+*s.ClosingNotes), "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// ClosureReportFileName is the file name of a session's Z-report.
func ClosureReportFileName(sessionID string) string {
	return fmt.Sprintf("z_%s.pdf", sessionID)
}
