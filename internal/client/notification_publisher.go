package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes review workflow events to NATS for
// consumption by the downstream notification service.
//
// Subject convention: <prefix>.<event_type>
// Event types: approved, rejected
//
// All publish operations are non-fatal — errors are logged but never
// propagated, so notification failures never interrupt review decisions.
type NotificationPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
	log           zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType    string                 `json:"event_type"`
	ActorID      string                 `json:"actor_id"`
	Recipients   []string               `json:"recipients,omitempty"`
	ResourceType string                 `json:"resource_type,omitempty"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	ReportName   string                 `json:"report_name,omitempty"`
	Severity     string                 `json:"severity,omitempty"`
	Category     string                 `json:"category,omitempty"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
}

// NewNotificationPublisher creates a publisher. conn may be nil, in which
// case every publish is a no-op.
func NewNotificationPublisher(conn *nats.Conn, subjectPrefix string, log zerolog.Logger) *NotificationPublisher {
	return &NotificationPublisher{conn: conn, subjectPrefix: subjectPrefix, log: log}
}

// PublishReportEvent publishes one review workflow event.
// Subject: <prefix>.<eventType>
func (p *NotificationPublisher) PublishReportEvent(ctx context.Context, eventType, candidateID, reportName, actor string, recipients []string, payload map[string]interface{}) {
	if p.conn == nil {
		return
	}

	event := &NotificationEvent{
		EventType:    eventType,
		ActorID:      actor,
		Recipients:   recipients,
		ResourceType: "report_candidate",
		ResourceID:   candidateID,
		ReportName:   reportName,
		Severity:     "info",
		Category:     "report_approval",
		Payload:      payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, eventType)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("candidate_id", candidateID).
			Msg("notification: failed to publish event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("candidate_id", candidateID).
		Int("recipients", len(recipients)).
		Msg("notification: event published")
}
