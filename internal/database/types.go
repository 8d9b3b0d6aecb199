package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// ReactionColumn stores an emoji -> user-id-list mapping as a JSON text
// column, which works identically across PostgreSQL, MySQL and SQLite.
type ReactionColumn map[string][]string

// Scan implements the sql.Scanner interface for reading from the database.
func (r *ReactionColumn) Scan(value interface{}) error {
	if value == nil {
		*r = ReactionColumn{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("ReactionColumn: unsupported scan type")
	}

	if len(data) == 0 {
		*r = ReactionColumn{}
		return nil
	}
	return json.Unmarshal(data, r)
}

// Value implements the driver.Valuer interface for writing to the database.
func (r ReactionColumn) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (ReactionColumn) GormDataType() string {
	return "text"
}
