// Package node runs an application device on top of a transport.Session.
//
// A Device only deals with documents: it says what to send, reacts to what
// the gateway sends and does its own periodic work. The Runner owns the
// timing: when to process, when to transmit, when to retry.
package node

import (
	"time"

	"github.com/ystepanoff/lorahome/payload"
)

const (
	DefaultTransmissionInterval = 10 * time.Second
	DefaultProcessingInterval   = 180 * time.Second
	DefaultPollInterval         = 10 * time.Millisecond
)

// Device is the application side of a node.
type Device interface {
	// AppProcessing runs every processing interval, before receive and
	// transmit. Returning true asks to run again on the next step.
	AppProcessing(now time.Time) bool
	// TxPayload returns the document to send. A nil document skips this
	// transmission.
	TxPayload() (payload.Document, error)
	// ParseRxPayload handles a document from the gateway. Returning true
	// requests an immediate transmission, typically to report new state.
	ParseRxPayload(doc payload.Document) bool
}

// DeliveryObserver is implemented by devices that want to know the fate of
// their messages.
type DeliveryObserver interface {
	SendSucceeded(counter uint16)
	SendFailed(counter uint16, err error)
}

// Options control the Runner timing. Zero fields take the defaults.
type Options struct {
	TransmissionInterval time.Duration
	ProcessingInterval   time.Duration
	PollInterval         time.Duration
	// TransmitNow sends on the first step instead of waiting a full
	// transmission interval.
	TransmitNow bool
}

func (o Options) withDefaults() Options {
	if o.TransmissionInterval <= 0 {
		o.TransmissionInterval = DefaultTransmissionInterval
	}
	if o.ProcessingInterval <= 0 {
		o.ProcessingInterval = DefaultProcessingInterval
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}
