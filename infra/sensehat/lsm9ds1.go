package sensehat

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/i2c"
)

// LSM9DS1 inertial module: accelerometer and gyroscope share one address,
// the magnetometer has its own.
const (
	lsm9ds1AGAddr  = 0x6A
	lsm9ds1AGID    = 0x68
	lsm9ds1MagAddr = 0x1C
	lsm9ds1MagID   = 0x3D

	lsm9ds1Ctrl1G  = 0x10
	lsm9ds1OutG    = 0x18
	lsm9ds1Ctrl6XL = 0x20
	lsm9ds1OutXL   = 0x28
	lsm9ds1Ctrl1M  = 0x20
	lsm9ds1Ctrl2M  = 0x21
	lsm9ds1Ctrl3M  = 0x22
	lsm9ds1Ctrl4M  = 0x23
	lsm9ds1OutM    = 0x28

	gyroScale  = 0.0175 * math.Pi / 180 // 500 dps full scale, rad/s per LSB
	accelScale = 0.000244               // +-8 g full scale, g per LSB
	magScale   = 0.014                  // +-4 gauss full scale, microtesla per LSB
)

type imuSample struct {
	accel, gyro, mag [3]float64
}

type lsm9ds1 struct {
	ag  *i2c.Dev
	mag *i2c.Dev
}

func newLSM9DS1(bus i2c.Bus) (*lsm9ds1, error) {
	ag := &i2c.Dev{Bus: bus, Addr: lsm9ds1AGAddr}
	mag := &i2c.Dev{Bus: bus, Addr: lsm9ds1MagAddr}
	if err := checkID(ag, lsm9ds1AGID); err != nil {
		return nil, fmt.Errorf("lsm9ds1 accel/gyro: %w", err)
	}
	if err := checkID(mag, lsm9ds1MagID); err != nil {
		return nil, fmt.Errorf("lsm9ds1 magnetometer: %w", err)
	}
	err := writeRegs(ag,
		[2]byte{lsm9ds1Ctrl1G, 0x68},  // 119 Hz, 500 dps
		[2]byte{lsm9ds1Ctrl6XL, 0x78}, // 119 Hz, +-8 g
	)
	if err != nil {
		return nil, fmt.Errorf("lsm9ds1 accel/gyro: %w", err)
	}
	err = writeRegs(mag,
		[2]byte{lsm9ds1Ctrl1M, 0x70}, // ultra-high performance XY, 10 Hz
		[2]byte{lsm9ds1Ctrl2M, 0x00}, // +-4 gauss
		[2]byte{lsm9ds1Ctrl3M, 0x00}, // continuous conversion
		[2]byte{lsm9ds1Ctrl4M, 0x0C}, // ultra-high performance Z
	)
	if err != nil {
		return nil, fmt.Errorf("lsm9ds1 magnetometer: %w", err)
	}
	return &lsm9ds1{ag: ag, mag: mag}, nil
}

func (l *lsm9ds1) sense() (imuSample, error) {
	var s imuSample
	var err error
	if s.accel, err = readAxes(l.ag, lsm9ds1OutXL, accelScale); err != nil {
		return s, fmt.Errorf("lsm9ds1 accelerometer: %w", err)
	}
	if s.gyro, err = readAxes(l.ag, lsm9ds1OutG, gyroScale); err != nil {
		return s, fmt.Errorf("lsm9ds1 gyroscope: %w", err)
	}
	if s.mag, err = readAxes(l.mag, lsm9ds1OutM|autoIncrement, magScale); err != nil {
		return s, fmt.Errorf("lsm9ds1 magnetometer: %w", err)
	}
	return s, nil
}

func readAxes(d *i2c.Dev, reg byte, scale float64) ([3]float64, error) {
	b, err := readRegs(d, reg, 6)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64{
		float64(le16(b[0:2])) * scale,
		float64(le16(b[2:4])) * scale,
		float64(le16(b[4:6])) * scale,
	}, nil
}
