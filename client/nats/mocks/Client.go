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

package mocks

import (
	"context"

	natsio "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"

	"github.com/postai/flows/client/nats"
)

// Client is a mocked nats client
type Client struct {
	mock.Mock
}

// Close provides a mock function
func (c *Client) Close() {
	c.Called()
}

// IsConnected provides a mock function
func (c *Client) IsConnected() bool {
	ret := c.Called()

	var r0 bool
	if rf, ok := ret.Get(0).(func() bool); ok {
		r0 = rf()
	} else {
		r0 = ret.Bool(0)
	}
	return r0
}

// StreamName provides a mock function
func (c *Client) StreamName() string {
	ret := c.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.String(0)
	}
	return r0
}

// CreateStream provides a mock function
func (c *Client) CreateStream() error {
	ret := c.Called()
	return ret.Error(0)
}

// CreateConsumer provides a mock function
func (c *Client) CreateConsumer(consumerName string, cfg nats.ConsumerConfig) error {
	ret := c.Called(consumerName, cfg)
	return ret.Error(0)
}

// Subscribe provides a mock function
func (c *Client) Subscribe(
	ctx context.Context,
	consumerName string,
	q chan<- *natsio.Msg,
) (nats.Subscription, error) {
	ret := c.Called(ctx, consumerName, q)

	var r0 nats.Subscription
	if rf, ok := ret.Get(0).(func(context.Context, string, chan<- *natsio.Msg) nats.Subscription); ok {
		r0 = rf(ctx, consumerName, q)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(nats.Subscription)
	}
	return r0, ret.Error(1)
}

// Publish provides a mock function
func (c *Client) Publish(subject string, data []byte) error {
	ret := c.Called(subject, data)

	var r0 error
	if rf, ok := ret.Get(0).(func(string, []byte) error); ok {
		r0 = rf(subject, data)
	} else {
		r0 = ret.Error(0)
	}
	return r0
}
