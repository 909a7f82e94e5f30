package domain

const MsgSchemaVersion string = "0.0.1"

// PreviewContentType is the content type every published preview carries.
const PreviewContentType = "audio/mpeg"

type UploadResult struct {
	Bucket      string
	Path        string
	URL         string
	SizeInBytes int
}

// MessageContext carries the data about a finished publication that gets
// handed to the notifier, so the catalog side can persist the mapping
// between asset and preview URL.
type MessageContext struct {
	Bucket      string
	Path        string
	URL         string
	SizeInBytes int
	RequestID   string
}
