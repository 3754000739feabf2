package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"exchange-rate-facade/internal/config"
	"exchange-rate-facade/pkg/logger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init installs a Jaeger tracer as the global opentracing tracer. When tracing
// is disabled the default no-op tracer stays in place.
func Init(cfg config.TracingConfig, log *logger.Logger) (io.Closer, error) {
	if !cfg.Enabled {
		return nopCloser{}, nil
	}

	jcfg := jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: cfg.AgentHostPort,
		},
	}

	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		return nil, errors.Wrap(err, "creating jaeger tracer")
	}
	opentracing.SetGlobalTracer(tracer)

	log.Info("Tracing enabled", "service", cfg.ServiceName, "agent", cfg.AgentHostPort)
	return closer, nil
}
