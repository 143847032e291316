// Package influxdb writes listener telemetry to InfluxDB v2: a cot_messages
// point per received message and a listener_transitions point per lifecycle
// change. Writes are batched per batch_size and flush_interval; failures
// arrive on the SetOnError callback.
package influxdb
