// Package config loads a node's settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ystepanoff/lorahome/driver/sx127x"
	"github.com/ystepanoff/lorahome/node"
	"github.com/ystepanoff/lorahome/payload"
	proto "github.com/ystepanoff/lorahome/protocol"
	"github.com/ystepanoff/lorahome/transport"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid value")

const (
	DriverStub   = "stub"
	DriverSX127x = "sx127x"
	DriverSerial = "serial"
)

type Config struct {
	NetworkID    uint16   `yaml:"network_id"`
	NodeID       uint8    `yaml:"node_id"`
	AckTimeout   Duration `yaml:"ack_timeout"`
	MaxRetries   int      `yaml:"max_retries"`
	ReportSignal bool     `yaml:"report_signal"`
	Debug        bool     `yaml:"debug"`
	Codec        string   `yaml:"codec"`
	CounterDB    string   `yaml:"counter_db,omitempty"`
	Radio        Radio    `yaml:"radio"`
	Node         Node     `yaml:"node"`
}

type Radio struct {
	Driver          string `yaml:"driver"`
	Device          string `yaml:"device,omitempty"`
	SpeedHz         int64  `yaml:"speed_hz,omitempty"`
	BaudRate        int    `yaml:"baud_rate,omitempty"`
	FrequencyHz     uint32 `yaml:"frequency"`
	SpreadingFactor uint8  `yaml:"spreading_factor"`
	BandwidthHz     int    `yaml:"bandwidth"`
	CodingRate      uint8  `yaml:"coding_rate"`
	SyncWord        uint8  `yaml:"sync_word"`
	TxPowerDb       int    `yaml:"tx_power"`
	DisableCRC      bool   `yaml:"disable_crc,omitempty"`
}

type Node struct {
	TransmissionInterval Duration `yaml:"transmission_interval"`
	ProcessingInterval   Duration `yaml:"processing_interval"`
	PollInterval         Duration `yaml:"poll_interval"`
	TransmitNow          bool     `yaml:"transmit_now"`
}

// Duration reads "2s" style strings, or a plain integer of milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var ms int64
	if err := value.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the LoRaHome defaults for node 1 on the stub radio.
func Default() Config {
	radio := sx127x.DefaultOptions()
	return Config{
		NetworkID:    proto.DefaultNetworkID,
		NodeID:       1,
		AckTimeout:   Duration(proto.DefaultAckTimeout * time.Millisecond),
		MaxRetries:   proto.DefaultMaxRetries,
		ReportSignal: true,
		Codec:        "json",
		Radio: Radio{
			Driver:          DriverStub,
			FrequencyHz:     radio.FrequencyHz,
			SpreadingFactor: radio.SpreadingFactor,
			BandwidthHz:     radio.BandwidthHz,
			CodingRate:      radio.CodingRate,
			SyncWord:        radio.SyncWord,
			TxPowerDb:       radio.TxPowerDb,
		},
		Node: Node{
			TransmissionInterval: Duration(node.DefaultTransmissionInterval),
			ProcessingInterval:   Duration(node.DefaultProcessingInterval),
			PollInterval:         Duration(node.DefaultPollInterval),
		},
	}
}

// Load reads and validates the file at path. Keys missing from the file
// keep their Default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	id := proto.NodeID(c.NodeID)
	if id.IsGateway() || id.IsBroadcast() {
		return fmt.Errorf("%w: node_id %d is reserved", ErrInvalid, c.NodeID)
	}
	if c.MaxRetries < 0 || c.AckTimeout < 0 {
		return fmt.Errorf("%w: negative ack_timeout or max_retries", ErrInvalid)
	}
	switch c.Radio.Driver {
	case DriverStub, DriverSX127x, DriverSerial:
	default:
		return fmt.Errorf("%w: radio driver %q", ErrInvalid, c.Radio.Driver)
	}
	if c.Radio.Driver == DriverSerial && c.Radio.Device == "" {
		return fmt.Errorf("%w: serial radio needs a device", ErrInvalid)
	}
	if _, ok := payload.ByName(c.Codec); !ok {
		return fmt.Errorf("%w: codec %q", ErrInvalid, c.Codec)
	}
	return nil
}

func (c Config) Transport() transport.Config {
	return transport.Config{
		NetworkID:    c.NetworkID,
		NodeID:       proto.NodeID(c.NodeID),
		AckTimeout:   time.Duration(c.AckTimeout),
		MaxRetries:   c.MaxRetries,
		ReportSignal: c.ReportSignal,
		Debug:        c.Debug,
	}
}

func (c Config) Runner() node.Options {
	return node.Options{
		TransmissionInterval: time.Duration(c.Node.TransmissionInterval),
		ProcessingInterval:   time.Duration(c.Node.ProcessingInterval),
		PollInterval:         time.Duration(c.Node.PollInterval),
		TransmitNow:          c.Node.TransmitNow,
	}
}

func (c Config) SX127x() sx127x.Options {
	return sx127x.Options{
		FrequencyHz:     c.Radio.FrequencyHz,
		BandwidthHz:     c.Radio.BandwidthHz,
		SpreadingFactor: c.Radio.SpreadingFactor,
		CodingRate:      c.Radio.CodingRate,
		SyncWord:        c.Radio.SyncWord,
		TxPowerDb:       c.Radio.TxPowerDb,
		DisableCRC:      c.Radio.DisableCRC,
		Debug:           c.Debug,
	}
}

// PayloadCodec returns the codec named by Codec.
func (c Config) PayloadCodec() payload.Codec {
	codec, ok := payload.ByName(c.Codec)
	if !ok {
		return payload.JSON{}
	}
	return codec
}
