package metrics

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var labelNames = []string{"method", "path", "status_code", "success", "error_type"}

var dimLabels = map[string]string{
	DimMethod:     "method",
	DimPath:       "path",
	DimStatusCode: "status_code",
	DimSuccess:    "success",
	DimErrorType:  "error_type",
}

// Prometheus maps observations onto lazily registered collectors.
// Count metrics become counters, everything else a gauge.
type Prometheus struct {
	mu        sync.Mutex
	reg       prometheus.Registerer
	namespace string
	log       *zap.Logger
	counters  map[string]*prometheus.CounterVec
	gauges    map[string]*prometheus.GaugeVec
}

// NewPrometheus returns a recorder registering its collectors with reg
func NewPrometheus(reg prometheus.Registerer, namespace string, log *zap.Logger) *Prometheus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prometheus{
		reg:       reg,
		namespace: snake(namespace),
		log:       log,
		counters:  make(map[string]*prometheus.CounterVec),
		gauges:    make(map[string]*prometheus.GaugeVec),
	}
}

// Record implements Recorder
func (p *Prometheus) Record(_ context.Context, d Datum) {

	labels := prometheus.Labels{}
	for _, l := range labelNames {
		labels[l] = ""
	}
	for k, v := range d.Dimensions {
		if l, ok := dimLabels[k]; ok {
			labels[l] = v
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if d.Unit == Count {
		cv, err := p.counter(d.Name)
		if err != nil {
			p.log.Error("could not register counter", zap.String("metric", d.Name), zap.Error(err))
			return
		}
		cv.With(labels).Add(d.Value)
		return
	}

	gv, err := p.gauge(d.Name, d.Unit)
	if err != nil {
		p.log.Error("could not register gauge", zap.String("metric", d.Name), zap.Error(err))
		return
	}
	gv.With(labels).Set(d.Value)
}

func (p *Prometheus) counter(name string) (*prometheus.CounterVec, error) {
	if cv, ok := p.counters[name]; ok {
		return cv, nil
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Name:      snake(name) + "_total",
		Help:      name + " count",
	}, labelNames)
	if err := p.reg.Register(cv); err != nil {
		return nil, err
	}
	p.counters[name] = cv
	return cv, nil
}

func (p *Prometheus) gauge(name string, u Unit) (*prometheus.GaugeVec, error) {
	if gv, ok := p.gauges[name]; ok {
		return gv, nil
	}
	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: p.namespace,
		Name:      snake(name) + "_" + strings.ToLower(string(u)),
		Help:      name + " in " + strings.ToLower(string(u)),
	}, labelNames)
	if err := p.reg.Register(gv); err != nil {
		return nil, err
	}
	p.gauges[name] = gv
	return gv, nil
}

// snake converts CamelCase names to snake_case, keeping acronyms together (APIError -> api_error)
func snake(s string) string {
	r := []rune(s)
	var b strings.Builder
	for i, c := range r {
		if unicode.IsUpper(c) && i > 0 {
			prevLower := unicode.IsLower(r[i-1]) || unicode.IsDigit(r[i-1])
			nextLower := i+1 < len(r) && unicode.IsLower(r[i+1])
			if prevLower || (unicode.IsUpper(r[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(c))
	}
	return b.String()
}
