// Package trace records FreeRTOS kernel events to an RTT channel.
//
// The stream written to the channel is:
//
//	RTT_TRACE_V1\n                       once, at Init
//	TRACE_START\n                        at every Start
//	TASK_REGISTRY_START\n                followed by TASK:<handle>:<name>\n lines
//	TASK_REGISTRY_END\n
//	<13-byte records>...                 back-to-back, see package event
//	TRACE_STOP\n                         at Stop, after the final flush
//
// Flushes only chunk the transport; readers split records by size.
//
// Recording is lossy: a full transport drops data silently and
// none of the operations report errors.
package trace
