package service

import (
	"database/sql"
	"encoding/json"
)

func errNoRows() error { return sql.ErrNoRows }

func jsonMarshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func jsonUnmarshal(raw []byte, dest interface{}) error { return json.Unmarshal(raw, dest) }
