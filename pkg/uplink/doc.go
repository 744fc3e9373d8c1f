// Package uplink forwards RTT up-buffer bytes from the probe side to host
// transports.
//
// Bytes are forwarded as they are read from the up-buffer. Nothing here
// parses the trace stream; chunk boundaries are arbitrary.
package uplink
