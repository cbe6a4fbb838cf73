package logger

// defaultOrder puts the fields an operator scans first at the front of each
// line. Keys not listed follow alphabetically.
var defaultOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"method",
	"cb_key",
	"action",
	"outcome",
	"duration_ms",
	"news_id",
	"mode",
	"filter",
	"page",
	"pages",
	"count",
	"total",
	"group_id",
	"photos",
	"cache",
	"path",
	"pid",
	"offset",
	"attempt",
	"retry_after_ms",
	"http_code",
	"err",
}

var enumValues = map[string]map[string]struct{}{
	"cache": {
		"hit":     {},
		"miss":    {},
		"refresh": {},
	},
	"outcome": {
		"ok":           {},
		"fail":         {},
		"cancelled":    {},
		"rate_limited": {},
	},
}
