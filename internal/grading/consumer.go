package grading

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Applier is the part of Recorder the consumer needs.
type Applier interface {
	Apply(ctx context.Context, res Result) (*Outcome, error)
}

// Consumer feeds grading results published on NATS into an Applier. Several
// scoreboard instances share one queue group so each result is applied once.
type Consumer struct {
	conn    *nats.Conn
	subject string
	queue   string
	applier Applier
	logger  *zap.Logger
}

func NewConsumer(conn *nats.Conn, subject, queue string, applier Applier, logger *zap.Logger) *Consumer {
	return &Consumer{
		conn:    conn,
		subject: subject,
		queue:   queue,
		applier: applier,
		logger:  logger.With(zap.String("component", "grading_consumer")),
	}
}

// Start subscribes and returns; the subscription drains when ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.conn.QueueSubscribe(c.subject, c.queue, func(msg *nats.Msg) {
		c.handle(ctx, msg.Data)
	})
	if err != nil {
		return err
	}
	c.logger.Info("consuming grading results", zap.String("subject", c.subject), zap.String("queue", c.queue))

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			c.logger.Warn("failed to drain grading result subscription", zap.Error(err))
		}
	}()
	return nil
}

func (c *Consumer) handle(ctx context.Context, payload []byte) {
	var res Result
	if err := json.Unmarshal(payload, &res); err != nil {
		observeResult("invalid")
		c.logger.Warn("invalid grading result payload", zap.Error(err))
		return
	}
	if _, err := c.applier.Apply(ctx, res); err != nil {
		c.logger.Error("failed to apply grading result", zap.Uint("submission_id", res.SubmissionID), zap.Error(err))
	}
}
