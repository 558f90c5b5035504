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

package worker

import (
	"github.com/pkg/errors"

	"github.com/postai/flows/client/nats"
	"github.com/postai/flows/model"
)

// PublishRun queues a run request on the work queue of the stream
func PublishRun(natsClient nats.Client, topic string, req *model.RunRequest) error {
	data, err := req.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to encode the run request")
	}
	subject := natsClient.StreamName() + "." + topic
	if err := natsClient.Publish(subject, data); err != nil {
		return errors.Wrapf(err, "failed to publish the run %s", req.RunID)
	}
	return nil
}
