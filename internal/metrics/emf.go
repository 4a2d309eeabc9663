// Package metrics emits CloudWatch Embedded Metrics Format (EMF) documents.
// Each flush writes one JSON line; when the process runs on Lambda,
// CloudWatch extracts the metrics from the log stream. Elsewhere the lines
// are harmless structured output.
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

// Namespace is the CloudWatch namespace for every metric this module emits.
const Namespace = "Noksha"

// Standard CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout

	functionName string
	initOnce     sync.Once
)

// SetOutput redirects EMF lines and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

// Recorder accumulates dimensions, metrics and properties for one flush.
// It is not safe for concurrent use; create one per operation.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]any
	properties map[string]any
}

// New creates a Recorder for namespace. On Lambda the FunctionName
// dimension is added automatically.
func New(namespace string) *Recorder {
	initOnce.Do(func() {
		functionName = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	})
	r := &Recorder{
		namespace:  namespace,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]any),
		properties: make(map[string]any),
	}
	if functionName != "" {
		r.dimensions["FunctionName"] = functionName
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
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric with value 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Duration records d in milliseconds.
func (r *Recorder) Duration(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Property adds a searchable field that does not create a metric.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the EMF document as a single JSON line. Recorders with no
// metrics write nothing. A Recorder must not be reused after Flush.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]metricDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.metrics[name])
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}
	sort.Strings(dimKeys)

	doc := make(map[string]any, 1+len(r.dimensions)+len(r.values)+len(r.properties))
	doc["_aws"] = emfDirective{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    defs,
		}},
	}
	for k, v := range r.properties {
		doc[k] = v
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal EMF document")
		return
	}
	data = append(data, '\n')

	outMu.Lock()
	defer outMu.Unlock()
	if _, err := out.Write(data); err != nil {
		log.Warn().Err(err).Msg("Failed to write EMF document")
	}
}

// ProviderCall records latency and outcome of one call to the AI provider.
func ProviderCall(operation, model string, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	New(Namespace).
		Dimension("Operation", operation).
		Dimension("Result", result).
		Duration("ProviderLatencyMs", elapsed).
		Count("ProviderCalls").
		Property("model", model).
		Flush()
}
