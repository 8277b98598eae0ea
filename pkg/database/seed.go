package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"booktracker/pkg/models"
)

// LoadBooksFromJSON reads the books of an import file. The file holds either
// a JSON array of books or a whole GET /api/books response envelope, so one
// user's export can be imported for another. Unknown fields such as id and
// user_id are ignored.
func LoadBooksFromJSON(jsonPath string) ([]models.BookInput, error) {
	b, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read books json: %w", err)
	}

	var list []models.BookInput
	if trimmed := bytes.TrimSpace(b); len(trimmed) > 0 && trimmed[0] == '{' {
		var env models.Response[[]models.BookInput]
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("unmarshal books json %s: %w", jsonPath, err)
		}
		if env.Data != nil {
			list = *env.Data
		}
	} else if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("unmarshal books json %s: %w", jsonPath, err)
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("%s contains no books", jsonPath)
	}
	return list, nil
}
