package sx127x

const (
	REG_FIFO                 = 0x00
	REG_OP_MODE              = 0x01
	REG_FRF_MSB              = 0x06
	REG_FRF_MID              = 0x07
	REG_FRF_LSB              = 0x08
	REG_PA_CONFIG            = 0x09
	REG_OCP                  = 0x0B
	REG_LNA                  = 0x0C
	REG_FIFO_ADDR_PTR        = 0x0D
	REG_FIFO_TX_BASE_ADDR    = 0x0E
	REG_FIFO_RX_BASE_ADDR    = 0x0F
	REG_FIFO_RX_CURRENT_ADDR = 0x10
	REG_IRQ_FLAGS            = 0x12
	REG_RX_NB_BYTES          = 0x13
	REG_PKT_SNR_VALUE        = 0x19
	REG_PKT_RSSI_VALUE       = 0x1A
	REG_MODEM_CONFIG_1       = 0x1D
	REG_MODEM_CONFIG_2       = 0x1E
	REG_PREAMBLE_MSB         = 0x20
	REG_PREAMBLE_LSB         = 0x21
	REG_PAYLOAD_LENGTH       = 0x22
	REG_MODEM_CONFIG_3       = 0x26
	REG_DETECTION_OPTIMIZE   = 0x31
	REG_INVERTIQ             = 0x33
	REG_DETECTION_THRESHOLD  = 0x37
	REG_SYNC_WORD            = 0x39
	REG_INVERTIQ2            = 0x3B
	REG_DIO_MAPPING_1        = 0x40
	REG_VERSION              = 0x42
	REG_PA_DAC               = 0x4D
)

const (
	MODE_LONG_RANGE_MODE = 0x80
	MODE_SLEEP           = 0x00
	MODE_STDBY           = 0x01
	MODE_TX              = 0x03
	MODE_RX_CONTINUOUS   = 0x05
	MODE_RX_SINGLE       = 0x06
)

const (
	IRQ_TX_DONE_MASK           = 0x08
	IRQ_PAYLOAD_CRC_ERROR_MASK = 0x20
	IRQ_RX_DONE_MASK           = 0x40
)

const (
	PA_BOOST = 0x80

	// chip version of the SX1276/77/78/79
	chipVersion = 0x12

	spiWriteMask = 0x80
	fxosc        = 32000000
	fifoSize     = 256
)

// bandwidths in Hz, indexed by their MODEM_CONFIG_1 setting.
var bandwidths = []int{7800, 10400, 15600, 20800, 31250, 41700, 62500, 125000, 250000, 500000}
