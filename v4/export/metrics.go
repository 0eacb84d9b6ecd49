// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	finishedSizeCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oradump",
			Subsystem: "dump",
			Name:      "finished_size",
			Help:      "counter for oradump finished file size",
		})
	finishedRowsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oradump",
			Subsystem: "dump",
			Name:      "finished_rows",
			Help:      "counter for oradump finished rows",
		})
	finishedTablesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oradump",
			Subsystem: "dump",
			Name:      "finished_tables",
			Help:      "counter for oradump tables by outcome",
		}, []string{"state"})
	writeTimeHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "oradump",
			Subsystem: "write",
			Name:      "write_duration_time",
			Help:      "Bucketed histogram of write time (s) of records",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 20),
		})
	tableDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "oradump",
			Subsystem: "dump",
			Name:      "table_duration_time",
			Help:      "Bucketed histogram of export time (s) of tables",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 20),
		})
	errorCount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "oradump",
			Subsystem: "dump",
			Name:      "error_count",
			Help:      "Total error count during dumping progress",
		})
)

// RegisterMetrics registers metrics.
func RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(finishedSizeCounter)
	registry.MustRegister(finishedRowsCounter)
	registry.MustRegister(finishedTablesCounter)
	registry.MustRegister(writeTimeHistogram)
	registry.MustRegister(tableDurationHistogram)
	registry.MustRegister(errorCount)
}

// observeJob records the outcome of a finished job.
func observeJob(job *ExportJob) {
	finishedTablesCounter.WithLabelValues(job.State.String()).Inc()
	switch job.State {
	case JobDone:
		finishedRowsCounter.Add(float64(job.Rows))
		finishedSizeCounter.Add(float64(job.Bytes))
		tableDurationHistogram.Observe(job.Elapsed.Seconds())
	case JobErrored:
		errorCount.Inc()
	}
}
