package metric

import (
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/citevet/citevet/errors"
)

// Handler returns an http.Handler serving the registry contents in the
// Prometheus exposition format. The toolkit never opens a listener itself;
// embedding applications mount the handler on whatever mux they already run.
func (r *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(
		r.prometheusRegistry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
}

// WriteText encodes the current registry contents to w in the text exposition
// format. The CLI uses this to dump metrics after a batch run.
func (r *MetricsRegistry) WriteText(w io.Writer) error {
	families, err := r.prometheusRegistry.Gather()
	if err != nil {
		return errors.Wrap(err, "MetricsRegistry", "WriteText", "gather metrics")
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "MetricsRegistry", "WriteText", "encode metric family")
		}
	}
	return nil
}
