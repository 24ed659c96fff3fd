// Package metrics emits CloudWatch Embedded Metric Format (EMF) records:
// one JSON line on stdout per record, which CloudWatch Logs turns into
// metrics without an API call.
//
// Emission is on inside Lambda (AWS_LAMBDA_FUNCTION_NAME set) or when
// ARCHIFLOW_EMF=1. The MCP binary must leave it off since its stdout
// carries the protocol.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Namespace is the CloudWatch namespace for every archiflow metric.
const Namespace = "Archiflow"

// CloudWatch metric units in use.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
)

// emission is the process-wide switch and sink, resolved once from the
// environment.
var emission struct {
	once         sync.Once
	enabled      bool
	functionName string
	// out is where records go; tests swap it.
	out io.Writer
}

func loadEmission() {
	emission.once.Do(func() {
		emission.functionName = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
		emission.enabled = emission.functionName != "" || os.Getenv("ARCHIFLOW_EMF") == "1"
		if emission.out == nil {
			emission.out = os.Stdout
		}
	})
}

// Enabled reports whether Flush writes anything.
func Enabled() bool {
	loadEmission()
	return emission.enabled
}

type metricValue struct {
	unit  string
	value float64
}

// Recorder accumulates one EMF record. It is not safe for concurrent use;
// create one per event.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	metrics    map[string]metricValue
	properties map[string]interface{}
}

// New starts a record in the archiflow namespace. Inside Lambda the
// FunctionName dimension is added automatically.
func New() *Recorder {
	return NewIn(Namespace)
}

// NewIn starts a record in another namespace.
func NewIn(namespace string) *Recorder {
	loadEmission()
	r := &Recorder{
		namespace:  namespace,
		dimensions: map[string]string{},
		metrics:    map[string]metricValue{},
		properties: map[string]interface{}{},
	}
	if emission.functionName != "" {
		r.dimensions["FunctionName"] = emission.functionName
	}
	return r
}

// Dimension adds a dimension key-value pair.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named value with a CloudWatch unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricValue{unit: unit, value: value}
	return r
}

// Count records a count of one.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Duration records d in milliseconds.
func (r *Recorder) Duration(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Property adds a non-metric field, searchable in Logs Insights.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

type metricDirective struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type namespaceDirective struct {
	Namespace  string            `json:"Namespace"`
	Dimensions [][]string        `json:"Dimensions"`
	Metrics    []metricDirective `json:"Metrics"`
}

type awsDirective struct {
	Timestamp         int64                `json:"Timestamp"`
	CloudWatchMetrics []namespaceDirective `json:"CloudWatchMetrics"`
}

// document builds the EMF root object: the _aws directive plus every
// dimension, metric value and property as top-level members.
func (r *Recorder) document(now time.Time) map[string]interface{} {
	doc := make(map[string]interface{}, 1+len(r.dimensions)+len(r.metrics)+len(r.properties))
	for k, v := range r.properties {
		doc[k] = v
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k, v := range r.dimensions {
		dimKeys = append(dimKeys, k)
		doc[k] = v
	}
	sort.Strings(dimKeys)

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]metricDirective, 0, len(names))
	for _, name := range names {
		m := r.metrics[name]
		defs = append(defs, metricDirective{Name: name, Unit: m.unit})
		doc[name] = m.value
	}

	doc["_aws"] = awsDirective{
		Timestamp: now.UnixMilli(),
		CloudWatchMetrics: []namespaceDirective{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    defs,
		}},
	}
	return doc
}

// Flush writes the record as a single JSON line. A record without metrics
// writes nothing. The Recorder must not be reused afterwards.
func (r *Recorder) Flush() {
	if !Enabled() || len(r.metrics) == 0 {
		return
	}
	data, err := json.Marshal(r.document(time.Now()))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal EMF record")
		return
	}
	data = append(data, '\n')
	emission.out.Write(data)
}
