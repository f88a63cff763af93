package bridge

import "github.com/Tanmoy095/LogiSynapse-escrow/shared/contracts"

// Queue names the notification workers listen on.
const (
	EmailQueue = "email_jobs"
	SMSQueue   = "sms_jobs"
)

// Notification is one job for one party, published to a RabbitMQ queue.
type Notification struct {
	EventID    string              `json:"event_id"`
	Event      contracts.EventType `json:"event"`
	ShipmentID uint64              `json:"shipment_id"`
	Recipient  string              `json:"recipient"`
	Role       string              `json:"role"`
	Amount     uint64              `json:"amount,omitempty"`
	Message    string              `json:"message"`
}
