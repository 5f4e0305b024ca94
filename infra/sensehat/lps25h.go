package sensehat

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// LPS25H barometric pressure and temperature sensor.
const (
	lps25hAddr     = 0x5C
	lps25hID       = 0xBD
	lps25hResConf  = 0x10
	lps25hCtrl1    = 0x20
	lps25hCtrl2    = 0x21
	lps25hOut      = 0x28
	lps25hFifoCtrl = 0x2E
)

type lps25h struct {
	dev *i2c.Dev
}

func newLPS25H(bus i2c.Bus) (*lps25h, error) {
	d := &i2c.Dev{Bus: bus, Addr: lps25hAddr}
	if err := checkID(d, lps25hID); err != nil {
		return nil, fmt.Errorf("lps25h: %w", err)
	}
	err := writeRegs(d,
		[2]byte{lps25hCtrl1, 0xC4},    // power on, 25 Hz, block data update
		[2]byte{lps25hResConf, 0x05},  // 32 pressure and 16 temperature samples
		[2]byte{lps25hFifoCtrl, 0xC0}, // FIFO mean mode
		[2]byte{lps25hCtrl2, 0x40},    // FIFO enable
	)
	if err != nil {
		return nil, fmt.Errorf("lps25h: %w", err)
	}
	return &lps25h{dev: d}, nil
}

// sense returns the pressure in millibars and the temperature in degrees
// Celsius.
func (l *lps25h) sense() (pressure, temperature float64, err error) {
	b, err := readRegs(l.dev, lps25hOut|autoIncrement, 5)
	if err != nil {
		return 0, 0, fmt.Errorf("lps25h: %w", err)
	}
	raw := int32(uint32(b[0])|uint32(b[1])<<8|uint32(b[2])<<16) << 8 >> 8
	pressure = float64(raw) / 4096
	temperature = 42.5 + float64(le16(b[3:5]))/480
	return pressure, temperature, nil
}
