package models

// UUIDEntry records which file owns a UUID.
type UUIDEntry struct {
	UUID     string `json:"uuid"`
	FilePath string `json:"filePath"`
	Type     Kind   `json:"type"`
	Title    string `json:"title,omitempty"`
}

// Backlink lists every occurrence of a UUID reference token.
// Sources repeats a path once per occurrence in that file.
type Backlink struct {
	Count   int      `json:"count"`
	Sources []string `json:"sources"`
}

// UUIDIndex maps a UUID to its owning entry.
type UUIDIndex map[string]UUIDEntry

// BacklinkIndex maps a referenced UUID to its backlinks.
type BacklinkIndex map[string]*Backlink

// Add records one occurrence of uuid in source.
func (b BacklinkIndex) Add(uuid, source string) {
	bl, ok := b[uuid]
	if !ok {
		bl = &Backlink{}
		b[uuid] = bl
	}
	bl.Count++
	bl.Sources = append(bl.Sources, source)
}
