package events

import (
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection owns the AMQP connection and the channel publishers share.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

func Dial(url string, logger *slog.Logger) (*Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	logger.Info("connected to RabbitMQ")

	return &Connection{conn: conn, channel: channel, logger: logger}, nil
}

func (c *Connection) Channel() *amqp.Channel {
	return c.channel
}

// Healthy reports whether the connection is still open.
func (c *Connection) Healthy() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Connection) Close() error {
	if err := c.channel.Close(); err != nil {
		c.logger.Warn("failed to close channel", slog.String("error", err.Error()))
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close rabbitmq connection: %w", err)
	}
	return nil
}
