package model

// Item is the structured ingredient record handed to this core by the
// upstream ingestion collaborator.
type Item struct {
	// OriginalText is the raw free text exactly as typed or parsed.
	OriginalText string
	// Name is the cleaned display name.
	Name string
	// CategoryID is an optional caller-confirmed taxonomy id.
	CategoryID string
}
