// Package natsbus publishes enriched CoT events to NATS on
// <prefix>.<protocol>.<port>, so a consumer can follow one listener
// (cot.events.udp.9999), one protocol (cot.events.tcp.*) or all of them
// (cot.events.>).
package natsbus
