package service

import (
	"mypostelma/internal/dto"
	"mypostelma/internal/model"
	"mypostelma/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func amountPtr(c money.Currency, a *money.Amount) *decimal.Decimal {
	if a == nil {
		return nil
	}
	d := c.Decimal(*a)
	return &d
}

func toSessionResponse(c money.Currency, s *model.CashSession) dto.SessionResponse {
	resp := dto.SessionResponse{
		ID:                    s.ID.String(),
		LocationID:            s.LocationID.String(),
		Status:                string(s.Status),
		Currency:              c.Code,
		OpeningBalance:        c.Decimal(s.OpeningBalance),
		OpeningNotes:          s.OpeningNotes,
		OpenedBy:              uuidPtrString(s.OpenedBy),
		OpenedAt:              s.OpenedAt,
		ClosingCountedBalance: amountPtr(c, s.ClosingCountedBalance),
		TheoreticalBalance:    amountPtr(c, s.TheoreticalBalance),
		Variance:              amountPtr(c, s.Variance),
		ClosingNotes:          s.ClosingNotes,
		ClosedBy:              uuidPtrString(s.ClosedBy),
		ClosedAt:              s.ClosedAt,
	}
	if s.VarianceFlag != nil {
		flag := string(*s.VarianceFlag)
		resp.VarianceFlag = &flag
	}
	if s.Location != nil {
		resp.LocationCode = s.Location.Code
		resp.LocationName = s.Location.Name
	}
	return resp
}

func toMovementResponse(c money.Currency, m *model.CashMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:            m.ID.String(),
		SessionID:     m.SessionID.String(),
		Kind:          string(m.Kind),
		Amount:        c.Decimal(m.Amount),
		PaymentMethod: string(m.PaymentMethod),
		Description:   m.Description,
		Reference:     m.Reference,
		RecordedBy:    uuidPtrString(m.RecordedBy),
		CreatedAt:     m.CreatedAt,
	}
}

func toStatisticsResponse(c money.Currency, st ClosureStatistics) dto.StatisticsResponse {
	resp := dto.StatisticsResponse{
		SessionID:            st.SessionID.String(),
		Currency:             c.Code,
		OpeningBalance:       c.Decimal(st.OpeningBalance),
		TotalSales:           c.Decimal(st.TotalSales),
		TotalEntries:         c.Decimal(st.TotalEntries),
		TotalExits:           c.Decimal(st.TotalExits),
		TheoreticalBalance:   c.Decimal(st.TheoreticalBalance),
		SalesByPaymentMethod: make(map[string]decimal.Decimal, len(model.PaymentMethods)),
		NetByPaymentMethod:   make(map[string]decimal.Decimal, len(model.PaymentMethods)),
		MovementCount:        st.MovementCount,
	}
	// Every method is listed, zero included, so clients get a stable shape.
	for _, pm := range model.PaymentMethods {
		resp.SalesByPaymentMethod[string(pm)] = c.Decimal(st.SalesByPaymentMethod[pm])
		resp.NetByPaymentMethod[string(pm)] = c.Decimal(st.NetByPaymentMethod[pm])
	}
	return resp
}

func toAnnotationResponse(a *model.SessionAnnotation) dto.AnnotationResponse {
	return dto.AnnotationResponse{
		ID:        a.ID.String(),
		SessionID: a.SessionID.String(),
		AuthorID:  uuidPtrString(a.AuthorID),
		Note:      a.Note,
		CreatedAt: a.CreatedAt,
	}
}

func toLocationResponse(l *model.Location) dto.LocationResponse {
	return dto.LocationResponse{
		ID:        l.ID.String(),
		Code:      l.Code,
		Name:      l.Name,
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
	}
}
