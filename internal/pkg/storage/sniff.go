package storage

import (
	"github.com/gabriel-vasile/mimetype"
)

// Sniffed is the detected type of an upload.
type Sniffed struct {
	MimeType  string
	Extension string
	Allowed   bool
}

// Sniff detects the content type from the leading bytes of data, ignoring
// whatever the client declared. A type is allowed when it, or any of its
// parents, matches the allow-list.
func Sniff(data []byte, allowed []string) Sniffed {
	detected := mimetype.Detect(data)

	res := Sniffed{MimeType: detected.String(), Extension: detected.Extension()}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("application/octet-stream") {
			break
		}
		for _, a := range allowed {
			if m.Is(a) {
				res.Allowed = true
				return res
			}
		}
	}
	return res
}
