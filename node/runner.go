package node

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ystepanoff/lorahome/transport"
)

// Runner drives one Session and one Device from a single loop.
type Runner struct {
	session *transport.Session
	device  Device
	opts    Options

	mu             sync.Mutex
	transmitNow    bool
	fastProcessing bool
	started        bool
	lastTx         time.Time
	lastProcessing time.Time
}

func NewRunner(s *transport.Session, d Device, opts Options) *Runner {
	opts = opts.withDefaults()
	return &Runner{
		session:     s,
		device:      d,
		opts:        opts,
		transmitNow: opts.TransmitNow,
	}
}

func (r *Runner) Options() Options { return r.opts }

// RequestTransmit makes the next step send as soon as the slot is free.
func (r *Runner) RequestTransmit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transmitNow = true
}

// Step runs one iteration: application processing, one receive poll, the
// retry check and the periodic transmission. Only transmit errors are
// returned; everything else is handled or logged.
func (r *Runner) Step(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		r.started = true
		r.lastTx = now
		r.lastProcessing = now.Add(-r.opts.ProcessingInterval)
	}

	if r.fastProcessing || now.Sub(r.lastProcessing) >= r.opts.ProcessingInterval {
		r.fastProcessing = r.device.AppProcessing(now)
		r.lastProcessing = now
	}

	r.receive()
	r.retry()

	if !r.transmitNow && now.Sub(r.lastTx) < r.opts.TransmissionInterval {
		return nil
	}
	if !r.session.TransmitAvailable() {
		return nil
	}
	r.transmitNow = false
	r.lastTx = now
	return r.transmit()
}

func (r *Runner) receive() {
	ev := r.session.Receive()
	switch ev.Kind {
	case transport.EventDelivered:
		if obs, ok := r.device.(DeliveryObserver); ok {
			obs.SendSucceeded(ev.Counter)
		}
	case transport.EventMessage:
		if r.device.ParseRxPayload(ev.Payload) {
			r.transmitNow = true
		}
	}
}

func (r *Runner) retry() {
	pending, _, ok := r.session.Pending()
	if !ok {
		return
	}
	_, err := r.session.RetryIfDue()
	switch {
	case err == nil:
	case errors.Is(err, transport.ErrSendFailed):
		if obs, ok := r.device.(DeliveryObserver); ok {
			obs.SendFailed(pending.Counter, err)
		}
	default:
		log.Printf("[Runner %d] retry: %s", r.session.NodeID(), err)
	}
}

func (r *Runner) transmit() error {
	doc, err := r.device.TxPayload()
	if err != nil {
		log.Printf("[Runner %d] tx payload: %s", r.session.NodeID(), err)
		return nil
	}
	if doc == nil {
		return nil
	}
	counter, err := r.session.NextCounter()
	if err != nil {
		return err
	}
	return r.session.Send(doc, counter)
}

// Run puts the radio in receive mode and steps every poll interval until
// ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.session.Start(); err != nil {
		return err
	}
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := r.Step(now); err != nil {
				log.Printf("[Runner %d] send: %s", r.session.NodeID(), err)
			}
		}
	}
}
