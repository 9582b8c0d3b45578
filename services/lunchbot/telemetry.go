package lunchbot

import (
	"lunchbot/lib/artifacts"
	"lunchbot/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = telemetry.Tracer("lunchbot.services.lunchbot")

const (
	report_enrich_lock_failed      = "enrich.lock-failed"
	report_enrich_image_failed     = "enrich.image-failed"
	report_enrich_remote_failed    = "enrich.remote-failed"
	report_enrich_store_failed     = "enrich.store-failed"
	report_enrich_describe_failed  = "enrich.describe-failed"
	report_enrich_similar_describe = "enrich.similar-description"
	report_pipeline_source_failed  = "pipeline.source-failed"
	report_pipeline_history_failed = "pipeline.history-failed"
	report_publish_attempt_failed  = "publish.attempt-failed"
	report_alert_failed            = "alert.failed"
)

type counters struct {
	dishes      metric.Int64Counter
	generations metric.Int64Counter
	cacheHits   metric.Int64Counter
	fallbacks   metric.Int64Counter
	deliveries  metric.Int64Counter
}

func newCounters() counters {
	meter := telemetry.Meter("lunchbot.services.lunchbot")
	// the api only fails on invalid instrument names, a noop counter is
	// returned in that case.
	dishes, _ := meter.Int64Counter("lunchbot.dishes.scraped")
	generations, _ := meter.Int64Counter("lunchbot.artifacts.generated")
	cacheHits, _ := meter.Int64Counter("lunchbot.artifacts.reused")
	fallbacks, _ := meter.Int64Counter("lunchbot.artifacts.fallback")
	deliveries, _ := meter.Int64Counter("lunchbot.delivery.attempts")
	return counters{
		dishes:      dishes,
		generations: generations,
		cacheHits:   cacheHits,
		fallbacks:   fallbacks,
		deliveries:  deliveries,
	}
}

var metrics = newCounters()

func attributeKind(kind artifacts.Kind) metric.AddOption {
	return metric.WithAttributes(attribute.String("kind", kind.String()))
}

func metricSource(label string) metric.AddOption {
	return metric.WithAttributes(attribute.String("source", label))
}
