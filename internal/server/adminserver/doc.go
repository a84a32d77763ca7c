// Package adminserver exposes the operational HTTP endpoint.
//
// It runs on its own listener, separate from the RESP port, so probes
// and metric scrapers never compete with client traffic:
//
//	GET /healthz   liveness and build identity
//	GET /metrics   Prometheus exposition
//
// @req RQ-0502
// @design DS-0502
package adminserver
