package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// FakeContactInfoHandler handles GET /get_contact_info?ids=... with
// deterministic fabricated records. It exists for development deployments
// without a real directory service and is only mounted when
// directory.fake is enabled.
func FakeContactInfoHandler(defaultLanguages []string) http.HandlerFunc {
	language := ""
	if len(defaultLanguages) > 0 {
		language = defaultLanguages[0]
	}

	return func(w http.ResponseWriter, r *http.Request) {
		result := make(map[string]map[string]string)

		idsParam := r.URL.Query().Get("ids")
		if idsParam != "" {
			for _, raw := range strings.Split(idsParam, ",") {
				id, err := uuid.Parse(raw)
				if err != nil {
					result[raw] = map[string]string{"error": "invalid user id"}
					continue
				}
				result[id.String()] = map[string]string{
					"email":          fmt.Sprintf("user-%s@example.invalid", id.String()[:8]),
					"language":       language,
					"contact_method": "email",
				}
			}
		}

		respondJSON(w, http.StatusOK, result)
	}
}
