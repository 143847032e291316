// Package mqtt connects cotbridge to an MQTT broker.
//
// Topics hang off the configured prefix (default "cotbridge"):
//
//	cotbridge/status                  retained presence, with a will
//	cotbridge/event/<symbolCode>      enriched event JSON
//	cotbridge/listener/<port>/status  retained listener state
//	cotbridge/command/listener        listener commands (subscribed)
//
// Set broker.tls when the broker is not on loopback.
package mqtt
