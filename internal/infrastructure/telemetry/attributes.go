package telemetry

import "go.opentelemetry.io/otel/attribute"

// Metric attribute keys. Span attributes use the SpanAttr constants.
var (
	AttrTenantID       = attribute.Key("tenant_id")
	AttrOperation      = attribute.Key("operation")
	AttrOutcome        = attribute.Key("outcome")
	AttrDBOperation    = attribute.Key("db.operation")
	AttrDBTable        = attribute.Key("db.table")
	AttrMovementReason = attribute.Key("movement_reason")
	AttrStageCategory  = attribute.Key("stage_category")
	AttrStockAction    = attribute.Key("stock_action")
)

// Histogram bucket boundaries, in seconds
var (
	OperationDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	DBDurationBuckets        = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}
)
