package weather

import (
	"encoding/json"

	"github.com/shaharia-lab/weather-mcp-server/mcp"
)

// URIScheme is the scheme of all weather resource URIs.
const URIScheme = "weather://"

// Resources returns one JSON resource per table entry, ordered by key.
func Resources(store *Store) []mcp.Resource {
	keys := store.Keys()
	resources := make([]mcp.Resource, 0, len(keys))

	for _, key := range keys {
		data, ok := store.Get(key)
		if !ok {
			continue
		}

		body, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			continue
		}

		resources = append(resources, mcp.Resource{
			URI:         URIScheme + key,
			Name:        "Weather for " + data.Location,
			Description: "Current weather conditions in " + data.Location,
			MimeType:    "application/json",
			TextContent: string(body),
		})
	}

	return resources
}
