package transfer

// PostCreation is the multipart create-post form. PlatformContent and
// TargetPlatforms arrive as JSON-encoded strings.
type PostCreation struct {
	Content         string
	PlatformContent string
	TargetPlatforms string
	PageID          int64
	ScheduledFor    string
}
