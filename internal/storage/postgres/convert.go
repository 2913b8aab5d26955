package postgres

import (
	"github.com/jkaninda/kituo/internal/domain"
)

func toRequestDomain(m *RequestModel) domain.Request {
	return domain.Request{
		ID:          m.ID,
		ClientID:    m.ClientID,
		Type:        domain.RequestType(m.RequestType),
		Priority:    domain.Priority(m.Priority),
		Status:      domain.Status(m.Status),
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toClientDomain(m *ClientModel) domain.Client {
	return domain.Client{
		ID:         m.ID,
		FullName:   m.FullName,
		Phone:      m.Phone,
		Email:      m.Email,
		CardNumber: m.CardNumber,
	}
}

func toAuditDomain(m *AuditLogModel) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:              m.ID,
		Action:          m.Action,
		AdminExternalID: m.AdminExternalID,
		ClientID:        m.ClientID,
		RequestID:       m.RequestID,
		Details:         m.Details,
		CreatedAt:       m.CreatedAt,
	}
}
