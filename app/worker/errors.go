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
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// TransportErrorKind classifies the failures which prevent a valid HTTP
// response from being obtained
type TransportErrorKind int

const (
	TransportErrorOther TransportErrorKind = iota
	TransportErrorTimeout
	TransportErrorConnectionRefused
	TransportErrorDNSFailure
	TransportErrorTLSFailure
)

func (k TransportErrorKind) String() string {
	switch k {
	case TransportErrorTimeout:
		return "timeout"
	case TransportErrorConnectionRefused:
		return "connection refused"
	case TransportErrorDNSFailure:
		return "dns failure"
	case TransportErrorTLSFailure:
		return "tls failure"
	}
	return "other"
}

// TransportError is a per-node dispatch failure
type TransportError struct {
	Kind    TransportErrorKind
	Err     error
	Timeout time.Duration
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case TransportErrorTimeout:
		if e.Timeout > 0 && !errors.Is(e.Err, context.Canceled) {
			return fmt.Sprintf("request timed out after %s", e.Timeout)
		}
		return "request timed out: the run was cancelled"
	case TransportErrorConnectionRefused:
		return fmt.Sprintf("connection refused: %s", e.Err)
	case TransportErrorDNSFailure:
		return fmt.Sprintf("dns lookup failed: %s", e.Err)
	case TransportErrorTLSFailure:
		return fmt.Sprintf("tls handshake failed: %s", e.Err)
	}
	if e.Err == nil {
		return "request failed"
	}
	return fmt.Sprintf("request failed: %s", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classifyTransportError maps an error returned by the HTTP client to a
// TransportError
func classifyTransportError(err error, timeout time.Duration) *TransportError {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr
	}
	ret := &TransportError{Kind: TransportErrorOther, Err: err, Timeout: timeout}

	var (
		dnsErr      *net.DNSError
		netErr      net.Error
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		certErr     x509.CertificateInvalidError
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		ret.Kind = TransportErrorTimeout
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			ret.Kind = TransportErrorTimeout
		} else {
			ret.Kind = TransportErrorDNSFailure
		}
	case errors.Is(err, unix.ECONNREFUSED):
		ret.Kind = TransportErrorConnectionRefused
	case errors.As(err, &unknownAuth), errors.As(err, &hostnameErr),
		errors.As(err, &certErr), errors.As(err, &verifyErr),
		errors.As(err, &recordErr), errors.As(err, &alertErr):
		ret.Kind = TransportErrorTLSFailure
	case errors.As(err, &netErr) && netErr.Timeout():
		ret.Kind = TransportErrorTimeout
	}
	return ret
}
