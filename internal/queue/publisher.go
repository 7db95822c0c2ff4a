// Package queue provides the SQS-based producer for dispatching rendered
// reports to the delivery workers (SMS and email senders run out-of-process).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"trailwatch/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// DeliveryMessage is the wire payload handed to the delivery workers. The
// compact text is what SMS delivery sends verbatim; Body feeds email.
type DeliveryMessage struct {
	MessageID    string            `json:"message_id"`
	TraceID      string            `json:"trace_id"`
	ReportType   types.ReportType  `json:"report_type"`
	Trigger      types.TriggerKind `json:"trigger"`
	StageName    string            `json:"stage_name"`
	GeneratedFor time.Time         `json:"generated_for"`
	Compact      string            `json:"compact"`
	Body         string            `json:"body"`
	EnqueuedAt   time.Time         `json:"enqueued_at"`
}

// Publisher routes rendered reports to SQS. Dynamic updates go to the urgent
// queue (short visibility timeout, aggressive redrive); scheduled reports go
// to the standard queue.
type Publisher struct {
	client           SQSSender
	urgentQueueURL   string
	standardQueueURL string
	logger           *slog.Logger
}

// NewPublisher creates a Publisher for the two delivery queues.
func NewPublisher(client SQSSender, urgentQueueURL, standardQueueURL string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:           client,
		urgentQueueURL:   urgentQueueURL,
		standardQueueURL: standardQueueURL,
		logger:           logger,
	}
}

// Publish serializes the report into a DeliveryMessage and sends it. The
// message and trace IDs are generated here; the trace ID from ctx is reused
// when present so delivery correlates with the generation request.
func (p *Publisher) Publish(ctx context.Context, rep *types.StoredReport) error {
	traceID := types.GetRequestID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}

	msg := DeliveryMessage{
		MessageID:    uuid.NewString(),
		TraceID:      traceID,
		ReportType:   rep.ReportType,
		Trigger:      rep.Trigger,
		StageName:    rep.StageName,
		GeneratedFor: rep.GeneratedFor,
		Compact:      rep.Compact,
		Body:         rep.Body,
		EnqueuedAt:   time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal DeliveryMessage: %w", err)
	}

	queueURL := p.queueURLFor(rep.Trigger)
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"report_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(rep.ReportType)),
			},
			"trigger": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(rep.Trigger)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send DeliveryMessage to %s: %w", queueURL, err)
	}

	p.logger.InfoContext(ctx, "delivery message sent",
		"queue_url", queueURL,
		"message_id", msg.MessageID,
		"trace_id", msg.TraceID,
		"report_type", string(msg.ReportType),
		"trigger", string(msg.Trigger),
		"stage", msg.StageName,
	)

	return nil
}

// queueURLFor routes dynamic updates to the urgent queue and everything else
// to the standard queue.
func (p *Publisher) queueURLFor(trigger types.TriggerKind) string {
	if trigger == types.TriggerDynamic {
		return p.urgentQueueURL
	}
	return p.standardQueueURL
}
