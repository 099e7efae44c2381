package upload

import (
	"github.com/keshan-spec/drivelife-app-core/media"
)

// ManifestEntry is the durable record of one successfully uploaded file,
// produced only after its session completed. Entries are collected in
// file-selection order.
type ManifestEntry struct {
	URL      string     `json:"url"`
	Key      string     `json:"key"`
	MimeType string     `json:"mime"`
	Type     media.Type `json:"type"`
	Width    int        `json:"width"`
	Height   int        `json:"height"`
}
