package tracing

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	otlpgrpc "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otlphttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"

	"stackcollapse-callgrind/version"
)

const ServiceName = "stackcollapse-callgrind"

// InitTracer installs a global tracer provider exporting to conf.Endpoint.
// Without an endpoint nothing is installed and spans go to the no-op
// provider.
func InitTracer(ctx context.Context, conf *Config) (func(), error) {
	if conf.Endpoint == "" {
		return func() {}, nil
	}

	if conf.Debug {
		otel.SetLogger(conf.Logger)
	}

	exporter, err := createExporter(ctx, conf)
	if err != nil {
		return nil, err
	}

	// the conversion is one short batch run, so spans are exported as they end
	ssp := sdktrace.NewSimpleSpanProcessor(exporter)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(
			resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceNameKey.String(ServiceName),
				semconv.ServiceVersionKey.String(version.VersionNumber()),
			)),
		sdktrace.WithSpanProcessor(ssp),
	)

	otel.SetTracerProvider(tracerProvider)

	// set up the W3C trace context as the global propagator
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func() {
		tracerProvider.Shutdown(ctx)
		exporter.Shutdown(ctx)
	}, nil
}

type Config struct {
	Endpoint   string
	HeadersRaw []string
	Debug      bool
	Logger     logr.Logger

	Headers map[string]string
}

func (c *Config) ParseHeaders() error {

	headers := map[string]string{}

	for _, pair := range c.HeadersRaw {
		s := strings.SplitN(pair, "=", 2)
		if len(s) != 2 || s[0] == "" {
			return fmt.Errorf("expected a key value pair in the form key=value, but got %s", pair)
		}

		header := strings.TrimSpace(s[0])
		value := strings.TrimSpace(s[1])

		headers[header] = value
	}

	c.Headers = headers
	return nil
}

func createExporter(ctx context.Context, conf *Config) (sdktrace.SpanExporter, error) {
	endpoint := strings.ToLower(strings.TrimSpace(conf.Endpoint))

	if strings.HasPrefix(endpoint, "https://") || strings.HasPrefix(endpoint, "http://") {
		return httpExporter(ctx, endpoint, conf.Headers)
	}
	return grpcExporter(ctx, endpoint, conf.Headers)
}

// httpExporter posts to the endpoint URL, defaulting the port from the
// scheme and the path to the OTLP traces route.
func httpExporter(ctx context.Context, endpoint string, headers map[string]string) (sdktrace.SpanExporter, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid otel endpoint %q: %w", endpoint, err)
	}

	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}

	path := u.Path
	if path == "" {
		path = "/v1/traces"
	}

	opts := []otlphttp.Option{
		otlphttp.WithEndpoint(host),
		otlphttp.WithURLPath(path),
		otlphttp.WithHeaders(headers),
	}
	if u.Scheme == "http" {
		opts = append(opts, otlphttp.WithInsecure())
	}

	return otlphttp.New(ctx, opts...)
}

// grpcExporter dials host:port, skipping TLS only for loopback collectors.
func grpcExporter(ctx context.Context, endpoint string, headers map[string]string) (sdktrace.SpanExporter, error) {
	isLocal, err := isLoopbackAddress(endpoint)
	if err != nil {
		return nil, err
	}

	opts := []otlpgrpc.Option{
		otlpgrpc.WithEndpoint(endpoint),
		otlpgrpc.WithHeaders(headers),
	}
	if isLocal {
		opts = append(opts, otlpgrpc.WithInsecure())
	}

	return otlpgrpc.New(ctx, opts...)
}

// endpointHost extracts the host from "scheme://host:port/path" or
// "host:port". Anything else is taken as a bare host.
func endpointHost(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)

	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Hostname()
	}
	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host
	}
	return endpoint
}

// isLoopbackAddress reports whether every address the endpoint's host
// names is a loopback address.
func isLoopbackAddress(endpoint string) (bool, error) {
	host := endpointHost(endpoint)

	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback(), nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return false, fmt.Errorf("resolving otel endpoint host %q: %w", host, err)
	}

	for _, ip := range ips {
		if !ip.IsLoopback() {
			return false, nil
		}
	}
	return len(ips) > 0, nil
}
