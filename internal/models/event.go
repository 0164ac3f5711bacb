package models

import "time"

// Domain event names.
const (
	EventVisitorCreated     = "visitor.created"
	EventVisitorUpdated     = "visitor.updated"
	EventVisitorDeleted     = "visitor.deleted"
	EventTicketPriceUpdated = "ticket_price.updated"
	EventReportGenerated    = "report.generated"
)

// DomainEvent is the envelope published for every state change.
type DomainEvent struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	EntityID   string      `json:"entity_id"`
	Actor      string      `json:"actor"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload,omitempty"`
}
