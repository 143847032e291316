// Package logging builds the slog logger shared by every cotbridge
// component.
//
// Entries carry service and version attributes, and Component adds a
// component attribute per subsystem:
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("listener").Info("listening", "port", 9999, "protocol", "udp")
//
// Listener debug dumps are emitted at info level, so they are visible at
// the default level whenever a listener has debug enabled.
package logging
