// Package influxdb writes carrier telemetry to InfluxDB v2.
//
// The client uses the non-blocking batched write API from
// influxdata/influxdb-client-go. Callers build points with the library's
// write.NewPoint and hand them to WritePoint.
package influxdb
