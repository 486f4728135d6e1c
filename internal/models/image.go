package models

// EncodedImage is one staged product photo, transcoded to a base64 payload
// plus its sniffed MIME type.
type EncodedImage struct {
	MIME string `json:"mime"`
	Data string `json:"data"` // base64-encoded image bytes
}

// DataURI renders the image as an RFC 2397 data URI
func (e EncodedImage) DataURI() string {
	return "data:" + e.MIME + ";base64," + e.Data
}

// Selection is the ordered set of images staged for one scan attempt.
// Order reflects user-visible insertion order, never decode completion order.
type Selection []EncodedImage
