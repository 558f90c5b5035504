// Copyright 2026 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package nats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mendersoftware/go-lib-micro/log"
)

var (
	ErrNoConsumer           = errors.New("nats: consumer does not exist")
	ErrConsumerExist        = errors.New("nats: consumer already exist")
	ErrConsumerIncompatible = errors.New("nats: consumer configuration is incompatible")
)

const (
	// Set reconnect buffer size in bytes (10 MB)
	reconnectBufSize = 10 * 1024 * 1024
	// Set reconnect interval to 1 second
	reconnectWaitTime = 1 * time.Second
)

// Client is the nats client
type Client interface {
	Close()
	IsConnected() bool
	StreamName() string
	CreateStream() error
	CreateConsumer(consumerName string, cfg ConsumerConfig) error
	// Subscribe delivers the messages of the consumer to q; the receiver
	// is responsible for acknowledging them.
	Subscribe(
		ctx context.Context,
		consumerName string,
		q chan<- *nats.Msg,
	) (Subscription, error)
	Publish(string, []byte) error
}

// NewClient returns a new nats client
func NewClient(url string, streamName string, opts ...nats.Option) (Client, error) {
	natsClient, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	js, err := natsClient.JetStream()
	if err != nil {
		natsClient.Close()
		return nil, err
	}
	return &client{
		nats:       natsClient,
		js:         js,
		streamName: streamName,
	}, nil
}

// NewClientWithDefaults returns a new nats client with default options
func NewClientWithDefaults(url string, streamName string) (Client, error) {
	ctx := context.Background()
	l := log.FromContext(ctx)

	natsClient, err := NewClient(url, streamName,
		func(o *nats.Options) error {
			o.AllowReconnect = true
			o.MaxReconnect = -1
			o.ReconnectBufSize = reconnectBufSize
			o.ReconnectWait = reconnectWaitTime
			o.RetryOnFailedConnect = true
			o.ClosedCB = func(_ *nats.Conn) {
				l.Info("nats client closed the connection")
			}
			o.DisconnectedErrCB = func(_ *nats.Conn, e error) {
				if e != nil {
					l.Warnf("nats client disconnected, err: %v", e)
				}
			}
			o.ReconnectedCB = func(_ *nats.Conn) {
				l.Warn("nats client reconnected")
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return natsClient, nil
}

type client struct {
	nats       *nats.Conn
	js         nats.JetStreamContext
	streamName string
}

func (c *client) StreamName() string {
	return c.streamName
}

// Close closes the connection to nats
func (c *client) Close() {
	c.nats.Close()
}

// IsConnected returns true if the client is connected to nats
func (c *client) IsConnected() bool {
	return c.nats.IsConnected()
}

type ConsumerConfig struct {
	AutoReplace bool

	// Filter expression for which topics this consumer covers.
	Filter string
	// MaxPending runs in the work queue.
	// NOTE: This sets an upper limit on the horizontal scalability of the
	// service.
	MaxPending int
	// MaxWaiting sets the maximum number of pull consumers (clients) to wait
	// for messages.
	MaxWaiting int
	// MaxDeliver sets the maximum amount of time the run will be
	// (re-) delivered.
	MaxDeliver int
	// AckWait sets the time to wait for message acknowledgement before
	// resending the message.
	AckWait time.Duration
}

func (cfg ConsumerConfig) Validate() error {
	if cfg.AckWait < time.Second {
		return fmt.Errorf(
			"invalid consumer configuration AckWait: %s < 1s",
			cfg.AckWait)
	}
	if cfg.MaxDeliver < 1 {
		return fmt.Errorf(
			"invalid consumer configuration MaxDeliver: %d < 1",
			cfg.MaxDeliver)
	}
	if cfg.MaxPending < 1 {
		return fmt.Errorf(
			"invalid consumer configuration MaxPending: %d < 1",
			cfg.MaxPending)
	}
	if cfg.MaxWaiting < 1 {
		return fmt.Errorf(
			"invalid consumer configuration MaxWaiting: %d < 1",
			cfg.MaxWaiting)
	}
	return nil
}

const consumerVersionString = "flows/v1"

func (cfg ConsumerConfig) toNats(name string) *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Description:   consumerVersionString,
		FilterSubject: cfg.Filter,
		Name:          name,
		Durable:       name,

		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       cfg.AckWait,
		DeliverPolicy: nats.DeliverAllPolicy,
		MaxAckPending: cfg.MaxPending,
		MaxDeliver:    cfg.MaxDeliver,
		MaxWaiting:    cfg.MaxWaiting,
	}
}

func (c *client) CreateConsumer(consumerName string, config ConsumerConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	consumerInfo, err := c.js.ConsumerInfo(c.streamName, consumerName)
	if errors.Is(err, nats.ErrConsumerNotFound) {
		_, err := c.js.AddConsumer(c.streamName, config.toNats(consumerName))
		if errors.Is(err, nats.ErrConsumerNameAlreadyInUse) {
			return ErrConsumerExist
		}
		return err
	} else if err != nil {
		return fmt.Errorf("nats: error getting consumer info: %w", err)
	}

	if consumerInfo.Config.Description == consumerVersionString {
		return nil
	}
	if config.AutoReplace {
		_, err = c.js.UpdateConsumer(c.streamName, config.toNats(consumerName))
		if err == nil {
			return nil
		}
		err = c.js.DeleteConsumer(c.streamName, consumerName)
		if err != nil && !errors.Is(err, nats.ErrConsumerNotFound) {
			return err
		}
		_, err = c.js.AddConsumer(c.streamName, config.toNats(consumerName))
		if err != nil {
			err = fmt.Errorf("nats: failed to recreate consumer configuration: %w", err)
		}
	} else {
		err = ErrConsumerIncompatible
	}
	return err
}

// CreateStream creates the work queue stream if missing
func (c *client) CreateStream() error {
	stream, err := c.js.StreamInfo(c.streamName)
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	if stream == nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:      c.streamName,
			Subjects:  []string{c.streamName + ".>"},
			Retention: nats.WorkQueuePolicy,
			Discard:   nats.DiscardOld,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
			Replicas:  1,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Subscribe to a work queue consumer.
func (c *client) Subscribe(
	ctx context.Context,
	consumerName string,
	q chan<- *nats.Msg,
) (Subscription, error) {
	info, err := c.js.ConsumerInfo(c.streamName, consumerName)
	if errors.Is(err, nats.ErrConsumerNotFound) {
		return nil, ErrNoConsumer
	} else if err != nil {
		return nil, err
	}
	sub, err := c.js.PullSubscribe(
		info.Config.FilterSubject, "",
		nats.Bind(c.streamName, consumerName),
		nats.Context(ctx),
	)
	if err != nil {
		return nil, err
	}

	return &subscription{
		dst: q,
		sub: sub,

		done: make(chan struct{}),
	}, nil
}

type Subscription interface {
	ListenAndServe() error
	Close() error
}

type subscription struct {
	dst chan<- *nats.Msg
	sub *nats.Subscription

	mu   sync.Mutex
	done chan struct{}
	err  error
}

func (s *subscription) ListenAndServe() (err error) {
	defer func() {
		close(s.dst)
		_ = s.sub.Unsubscribe()
	}()
	var (
		msgs []*nats.Msg
	)
	for err == nil {
		select {
		case <-s.done:
			return nil
		default:
		}
		msgs, err = s.sub.Fetch(1, nats.MaxWait(time.Minute))
		if errors.Is(err, nats.ErrTimeout) {
			err = nil
			time.Sleep(time.Millisecond * 20)
			continue
		} else if err != nil {
			break
		}
		for _, msg := range msgs {
			select {
			case s.dst <- msg:

			case <-s.done:
				// let another worker pick it up
				_ = msg.Nak()
				return nil
			}
		}
	}
	return err
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.err
}

// Publish a message to the given subject
func (c *client) Publish(subj string, data []byte) error {
	_, err := c.js.Publish(subj, data)
	return err
}
