package env

import (
	"fmt"
	"strings"

	"github.com/denisbrodbeck/machineid"
)

// SerialPrefix prefixes serial numbers derived from the machine ID.
const SerialPrefix = "PHX"

const machineIDApp = "phoenix"

// MachineID retrieves the ID identifying the machine, hashed for this
// application.
func MachineID() (string, error) {
	id, err := machineid.ProtectedID(machineIDApp)
	if err != nil {
		return "", fmt.Errorf("machine id: %w", err)
	}
	return id, nil
}

// DefaultSerial derives a serial number from the machine ID.
func DefaultSerial() (string, error) {
	id, err := MachineID()
	if err != nil {
		return "", err
	}
	return SerialFromMachineID(id), nil
}

// SerialFromMachineID derives a serial number from id.
func SerialFromMachineID(id string) string {
	n := 16
	if len(id) < n {
		n = len(id)
	}
	return SerialPrefix + strings.ToUpper(id[:n])
}
