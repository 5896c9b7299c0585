package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency      = metric.NewHistogram("1m1s")
	StepLatency          = metric.NewHistogram("1m1s")
	RecvBatchSize        = metric.NewHistogram("10s1s")
	StepsPerSecond       = metric.NewCounter("10s1s")
	SentVectorsPerSecond = metric.NewCounter("10s1s")
	PoisonedPerSecond    = metric.NewCounter("10s1s")
	LinkChangesPerSecond = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("dvsim:RecvBatchSize", RecvBatchSize)

	expvar.Publish("dvsim:Steps/s", StepsPerSecond)
	expvar.Publish("dvsim:SentVectors/s", SentVectorsPerSecond)
	expvar.Publish("dvsim:Poisoned/s", PoisonedPerSecond)
	expvar.Publish("dvsim:LinkChanges/s", LinkChangesPerSecond)
	expvar.Publish("dvsim:StepLatency (µs)", StepLatency)
	expvar.Publish("dvsim:DispatchLatency (µs)", DispatchLatency)
}
