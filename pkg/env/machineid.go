package env

import (
	"github.com/denisbrodbeck/machineid"
)

// UnknownDevice is used when the machine id cannot be read.
const UnknownDevice = "unknown"

// DeviceID returns an application specific id of this machine, suitable
// as an MQTT topic level.
func DeviceID() string {
	id, err := machineid.ProtectedID("rtt")
	if err != nil || id == "" {
		return UnknownDevice
	}
	if len(id) > 16 {
		id = id[:16]
	}
	return id
}
