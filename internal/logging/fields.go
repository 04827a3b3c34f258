package logging

// Standardized attribute keys shared by every component.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
	FieldRunID     = "run_id"
	FieldMovie     = "movie"
	FieldCacheKey  = "cache_key"
	FieldCountry   = "country"
	FieldDecision  = "decision_type"
)
