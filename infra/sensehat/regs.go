package sensehat

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// autoIncrement is set on the register address of multi-byte reads on the
// ST chips that do not increment by default.
const autoIncrement = 0x80

// whoAmI is the identification register shared by every chip on the board.
const whoAmI = 0x0F

func readRegs(d *i2c.Dev, reg byte, n int) ([]byte, error) {
	b := make([]byte, n)
	if err := d.Tx([]byte{reg}, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeReg(d *i2c.Dev, reg, val byte) error {
	return d.Tx([]byte{reg, val}, nil)
}

func writeRegs(d *i2c.Dev, pairs ...[2]byte) error {
	for _, p := range pairs {
		if err := writeReg(d, p[0], p[1]); err != nil {
			return fmt.Errorf("write register 0x%02X: %w", p[0], err)
		}
	}
	return nil
}

func checkID(d *i2c.Dev, want byte) error {
	b, err := readRegs(d, whoAmI, 1)
	if err != nil {
		return err
	}
	if b[0] != want {
		return fmt.Errorf("unexpected device id 0x%02X at address 0x%02X, want 0x%02X", b[0], d.Addr, want)
	}
	return nil
}

func le16(b []byte) int16 {
	return int16(binary.LittleEndian.Uint16(b))
}
