package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/campus-eats/canteen-platform/internal/config"
	"github.com/streadway/amqp"
)

// Client wraps the RabbitMQ connection used by the event relay. Lifecycle is
// owned by the caller: construct, Connect, defer Close.
type Client struct {
	config    config.RabbitMQConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	mu        sync.RWMutex
	isClosing bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewClient(cfg config.RabbitMQConfig) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for i := 0; i < c.config.RetryCount; i++ {
		c.conn, err = amqp.Dial(c.config.ConnectionURL())
		if err != nil {
			log.Printf("RabbitMQ connection error (attempt %d/%d): %v", i+1, c.config.RetryCount, err)
			if i < c.config.RetryCount-1 {
				time.Sleep(c.config.RetryDelay)
				continue
			}
			return fmt.Errorf("failed to connect to RabbitMQ: %v", err)
		}

		c.channel, err = c.conn.Channel()
		if err != nil {
			c.conn.Close()
			return fmt.Errorf("RabbitMQ channel open error: %v", err)
		}

		err = c.channel.ExchangeDeclare(
			c.config.Exchange, // name
			"topic",           // type
			false,             // durable: events are ephemeral by design
			true,              // auto-deleted
			false,             // internal
			false,             // no-wait
			nil,               // arguments
		)
		if err != nil {
			c.channel.Close()
			c.conn.Close()
			return fmt.Errorf("failed to declare exchange: %v", err)
		}

		log.Printf("Connected to RabbitMQ: %s", c.config.Host)

		go c.watchConnection()

		return nil
	}

	return err
}

func (c *Client) watchConnection() {
	notifyClose := make(chan *amqp.Error)
	c.conn.NotifyClose(notifyClose)

	select {
	case err := <-notifyClose:
		if !c.isClosing {
			log.Printf("RabbitMQ connection lost: %v. Reconnecting...", err)
			time.Sleep(time.Second * 2)
			if reconnectErr := c.Connect(); reconnectErr != nil {
				log.Printf("Reconnect error: %v", reconnectErr)
			}
		}
	case <-c.ctx.Done():
	}
}

func (c *Client) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

func (c *Client) Exchange() string {
	return c.config.Exchange
}

func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conn != nil && !c.conn.IsClosed()
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosing {
		return nil
	}

	c.isClosing = true
	c.cancel()

	var closeErr error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			closeErr = fmt.Errorf("channel close error: %v", err)
			log.Printf("Failed to close channel: %v", err)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			if closeErr != nil {
				closeErr = fmt.Errorf("%v; connection close error: %v", closeErr, err)
			} else {
				closeErr = fmt.Errorf("connection close error: %v", err)
			}
			log.Printf("Failed to close connection: %v", err)
		}
	}

	return closeErr
}
