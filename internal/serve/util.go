package serve

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

func formatInt64(n int64) string {
	return strconv.FormatInt(n, 10)
}

// resourceIDFromEmbedURL pulls the resource_id query parameter out of the
// player URL an oEmbed consumer hands back to us, mirroring the original
// endpoint's own parsing of its url argument.
func resourceIDFromEmbedURL(embedURL string) (uuid.UUID, error) {
	parsed, err := url.Parse(embedURL)
	if err != nil {
		return uuid.UUID{}, err
	}
	return uuid.Parse(parsed.Query().Get("resource_id"))
}
