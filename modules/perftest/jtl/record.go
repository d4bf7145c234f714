package jtl

import "time"

// Record is one sampled request/transaction from a load-test result file,
// normalized from either the CSV or the XML shape of the format.
type Record struct {
	Label          string
	Timestamp      time.Time
	ResponseTimeMs int64
	Success        bool

	StatusCode    *int
	BytesSent     *int64
	BytesReceived *int64
	LatencyMs     *int64
	ConnectTimeMs *int64
}

// Stats reports how many rows a stream produced and how many it had to skip.
type Stats struct {
	ParsedRows  int
	SkippedRows int
}
