package catalogs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a catalog entry. Departments and cities use integers on
// the wire, document types use codes such as "CC".
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("catalog id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer ids back as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Int returns the numeric form of the id, if it has one.
func (id ID) Int() (int, bool) {
	n, err := strconv.Atoi(string(id))
	return n, err == nil
}

// Entry is one department, city or document type.
type Entry struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Kind names a catalog.
type Kind string

const (
	KindDepartments   Kind = "departments"
	KindDocumentTypes Kind = "documentTypes"
	KindCities        Kind = "cities"
)

// DefaultDocumentTypes is served when the backend has no document type
// endpoint.
func DefaultDocumentTypes() []Entry {
	return []Entry{
		{ID: "CC", Name: "Cédula de Ciudadanía"},
		{ID: "TI", Name: "Tarjeta de Identidad"},
		{ID: "CE", Name: "Cédula de Extranjería"},
		{ID: "PA", Name: "Pasaporte"},
		{ID: "PP", Name: "Permiso Especial de Permanencia"},
	}
}

// Find returns the entry with id.
func Find(entries []Entry, id ID) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
