package types

// String returns a pointer to s, handy for the optional artifact fields.
func String(s string) *string { return &s }

const (
	// TruncateThreshold is the number of characters shown for a collapsed
	// artifact field. Longer values get TruncateSuffix appended.
	TruncateThreshold = 100
	// TruncateSuffix is appended to truncated artifact values.
	TruncateSuffix = "..."
	// NoDataText is rendered in place of an empty or absent artifact value.
	NoDataText = "No data available"
	// UnknownErrorText is used when the server reports a failure without a message.
	UnknownErrorText = "unknown error"

	// TimestampLayout is the ISO-8601 layout used in export manifests.
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	// ManifestExt is the extension of every exported manifest.
	ManifestExt = ".json"
)
