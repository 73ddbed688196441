package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ystepanoff/lorahome/driver/stub"
	"github.com/ystepanoff/lorahome/payload"
	proto "github.com/ystepanoff/lorahome/protocol"
	"github.com/ystepanoff/lorahome/transport"
)

type testDevice struct {
	processed int
	fast      bool
	doc       payload.Document
	rxWantsTx bool

	received  []payload.Document
	succeeded []uint16
	failed    []uint16
}

func (d *testDevice) AppProcessing(time.Time) bool {
	d.processed++
	return d.fast
}

func (d *testDevice) TxPayload() (payload.Document, error) { return d.doc, nil }

func (d *testDevice) ParseRxPayload(doc payload.Document) bool {
	d.received = append(d.received, doc)
	return d.rxWantsTx
}

func (d *testDevice) SendSucceeded(counter uint16) { d.succeeded = append(d.succeeded, counter) }

func (d *testDevice) SendFailed(counter uint16, _ error) { d.failed = append(d.failed, counter) }

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func (c *clock) Advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

func newTestRunner(t *testing.T, dev *testDevice, opts Options) (*Runner, *stub.Driver, *clock) {
	t.Helper()
	driver := stub.New()
	clk := &clock{t: time.Unix(1700000000, 0)}
	s, err := transport.NewSession(transport.DefaultConfig(5), driver, transport.WithClock(clk.Now))
	if err != nil {
		t.Fatal(err)
	}
	return NewRunner(s, dev, opts), driver, clk
}

func sentFrames(t *testing.T, driver *stub.Driver) []*proto.Frame {
	t.Helper()
	var out []*proto.Frame
	for _, raw := range driver.GetTxLog() {
		f, err := proto.DecodeFrame(raw, true)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, f)
	}
	return out
}

func TestRunnerDefaults(t *testing.T) {
	r, _, _ := newTestRunner(t, &testDevice{}, Options{})
	opts := r.Options()
	if opts.TransmissionInterval != 10*time.Second || opts.ProcessingInterval != 180*time.Second || opts.PollInterval != 10*time.Millisecond {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestPeriodicTransmit(t *testing.T) {
	dev := &testDevice{doc: payload.Document{"t": 21}}
	r, driver, clk := newTestRunner(t, dev, Options{})

	if err := r.Step(clk.Now()); err != nil {
		t.Fatal(err)
	}
	if driver.TxCount() != 0 {
		t.Fatal("sent before the first transmission interval")
	}
	r.Step(clk.Advance(9 * time.Second))
	if driver.TxCount() != 0 {
		t.Fatal("sent after 9s")
	}

	if err := r.Step(clk.Advance(time.Second)); err != nil {
		t.Fatal(err)
	}
	frames := sentFrames(t, driver)
	if len(frames) != 1 {
		t.Fatalf("sent %d frames, want 1", len(frames))
	}
	if frames[0].Type != proto.MsgNodeDataAck || frames[0].Counter != 1 || string(frames[0].Payload) != `{"t":21}` {
		t.Errorf("sent %v", frames[0])
	}
}

func TestTransmitNow(t *testing.T) {
	dev := &testDevice{doc: payload.Document{"t": 21}}
	r, driver, clk := newTestRunner(t, dev, Options{TransmitNow: true})

	r.Step(clk.Now())
	if driver.TxCount() != 1 {
		t.Fatalf("TxCount() = %d, want 1", driver.TxCount())
	}

	// the slot is busy, the request waits
	r.RequestTransmit()
	r.Step(clk.Advance(100 * time.Millisecond))
	if driver.TxCount() != 1 {
		t.Fatalf("sent while awaiting ack")
	}

	driver.InjectRx(ack(t, 1))
	r.Step(clk.Advance(100 * time.Millisecond))
	frames := sentFrames(t, driver)
	if len(frames) != 2 || frames[1].Counter != 2 {
		t.Fatalf("sent %v", frames)
	}
	if len(dev.succeeded) != 1 || dev.succeeded[0] != 1 {
		t.Errorf("succeeded = %v", dev.succeeded)
	}
}

func ack(t *testing.T, counter uint16) []byte {
	t.Helper()
	data, err := proto.EncodeFrame(proto.NewAck(proto.DefaultNetworkID, proto.GatewayID, 5, counter, proto.MsgGatewayAck))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSendFailureReported(t *testing.T) {
	dev := &testDevice{doc: payload.Document{"t": 21}}
	r, driver, clk := newTestRunner(t, dev, Options{TransmitNow: true, TransmissionInterval: time.Hour})

	r.Step(clk.Now())
	for i := 0; i < 3; i++ {
		r.Step(clk.Advance(2 * time.Second))
	}

	if driver.TxCount() != 3 {
		t.Errorf("TxCount() = %d, want 3", driver.TxCount())
	}
	if len(dev.failed) != 1 || dev.failed[0] != 1 {
		t.Errorf("failed = %v", dev.failed)
	}
	if len(dev.succeeded) != 0 {
		t.Errorf("succeeded = %v", dev.succeeded)
	}
}

func TestReceivedMessageTriggersTransmit(t *testing.T) {
	dev := &testDevice{doc: payload.Document{"state": "ON"}, rxWantsTx: true}
	r, driver, clk := newTestRunner(t, dev, Options{})
	r.Step(clk.Now())

	cmd, err := proto.EncodeFrame(&proto.Frame{
		NetworkID: proto.DefaultNetworkID,
		Emitter:   proto.GatewayID,
		Recipient: 5,
		Type:      proto.MsgGatewayAckReq,
		Counter:   9,
		Payload:   []byte(`{"state":"ON"}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	driver.InjectRx(cmd)
	r.Step(clk.Advance(10 * time.Millisecond))

	if len(dev.received) != 1 || dev.received[0]["state"] != "ON" {
		t.Fatalf("received = %v", dev.received)
	}
	frames := sentFrames(t, driver)
	if len(frames) != 2 {
		t.Fatalf("sent %d frames, want ack and state report", len(frames))
	}
	if frames[0].Type != proto.MsgNodeAck || frames[0].Counter != 9 {
		t.Errorf("first frame = %v, want ack for 9", frames[0])
	}
	if frames[1].Type != proto.MsgNodeDataAck {
		t.Errorf("second frame = %v, want data", frames[1])
	}
}

func TestProcessingInterval(t *testing.T) {
	dev := &testDevice{}
	r, _, clk := newTestRunner(t, dev, Options{})

	r.Step(clk.Now())
	r.Step(clk.Advance(time.Second))
	if dev.processed != 1 {
		t.Fatalf("processed %d times, want 1", dev.processed)
	}
	r.Step(clk.Advance(179 * time.Second))
	if dev.processed != 2 {
		t.Fatalf("processed %d times, want 2", dev.processed)
	}

	dev.fast = true
	r.Step(clk.Advance(180 * time.Second))
	r.Step(clk.Advance(time.Millisecond))
	if dev.processed != 4 {
		t.Errorf("processed %d times, want 4 with fast processing", dev.processed)
	}
}

func TestNilPayloadSkipsTransmission(t *testing.T) {
	r, driver, clk := newTestRunner(t, &testDevice{}, Options{TransmitNow: true})
	if err := r.Step(clk.Now()); err != nil {
		t.Fatal(err)
	}
	if driver.TxCount() != 0 {
		t.Error("sent a nil document")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	dev := &testDevice{doc: payload.Document{"t": 21}}
	driver := stub.New()
	s, err := transport.NewSession(transport.DefaultConfig(5), driver)
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(s, dev, Options{PollInterval: time.Millisecond, TransmitNow: true})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := r.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v", err)
	}
	if driver.TxCount() == 0 {
		t.Error("Run never transmitted")
	}
	if driver.Mode() != stub.ModeReceive {
		t.Error("radio not left in receive mode")
	}
}
