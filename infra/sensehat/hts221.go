package sensehat

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// HTS221 relative humidity and temperature sensor.
const (
	hts221Addr   = 0x5F
	hts221ID     = 0xBC
	hts221AvConf = 0x10
	hts221Ctrl1  = 0x20
	hts221Out    = 0x28
	hts221Calib  = 0x30
)

type hts221 struct {
	dev *i2c.Dev

	h0, h1       float64
	t0, t1       float64
	h0Out, h1Out float64
	t0Out, t1Out float64
}

func newHTS221(bus i2c.Bus) (*hts221, error) {
	d := &i2c.Dev{Bus: bus, Addr: hts221Addr}
	if err := checkID(d, hts221ID); err != nil {
		return nil, fmt.Errorf("hts221: %w", err)
	}
	// Power on, block data update, 12.5 Hz; 32 temperature and 64 humidity samples.
	if err := writeRegs(d, [2]byte{hts221Ctrl1, 0x87}, [2]byte{hts221AvConf, 0x1B}); err != nil {
		return nil, fmt.Errorf("hts221: %w", err)
	}
	c, err := readRegs(d, hts221Calib|autoIncrement, 16)
	if err != nil {
		return nil, fmt.Errorf("hts221 calibration: %w", err)
	}
	h := &hts221{
		dev:   d,
		h0:    float64(c[0]) / 2,
		h1:    float64(c[1]) / 2,
		t0:    float64(uint16(c[5]&0x03)<<8|uint16(c[2])) / 8,
		t1:    float64(uint16(c[5]&0x0C)<<6|uint16(c[3])) / 8,
		h0Out: float64(le16(c[6:8])),
		h1Out: float64(le16(c[10:12])),
		t0Out: float64(le16(c[12:14])),
		t1Out: float64(le16(c[14:16])),
	}
	if h.h1Out == h.h0Out || h.t1Out == h.t0Out {
		return nil, fmt.Errorf("hts221: invalid calibration data")
	}
	return h, nil
}

// sense returns the relative humidity in percent and the temperature in
// degrees Celsius, interpolated from the factory calibration points.
func (h *hts221) sense() (humidity, temperature float64, err error) {
	b, err := readRegs(h.dev, hts221Out|autoIncrement, 4)
	if err != nil {
		return 0, 0, fmt.Errorf("hts221: %w", err)
	}
	hOut := float64(le16(b[0:2]))
	tOut := float64(le16(b[2:4]))
	humidity = h.h0 + (hOut-h.h0Out)*(h.h1-h.h0)/(h.h1Out-h.h0Out)
	temperature = h.t0 + (tOut-h.t0Out)*(h.t1-h.t0)/(h.t1Out-h.t0Out)
	return clamp(humidity, 0, 100), temperature, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
