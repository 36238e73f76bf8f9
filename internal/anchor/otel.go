package anchor

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/geoanchor/internal/anchor"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
