// Package infra contains the hardware and network adapters: the Sense HAT
// drivers, the MQTT publisher, the metrics outputs and the logging setup.
// These packages implement the interfaces defined in the core packages.
package infra
