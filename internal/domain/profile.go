package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Profile es el texto libre por categoría de una entidad. El UserID es opaco: nunca se parsea.
type Profile struct {
	UserID string              `json:"user_id"`
	Fields map[Category]string `json:"fields"`
}

// Text devuelve el texto recortado de la categoría, "" si no hay señal.
func (p Profile) Text(c Category) string {
	if p.Fields == nil {
		return ""
	}
	return strings.TrimSpace(p.Fields[c])
}

// IsEmpty indica si ninguna categoría tiene texto.
func (p Profile) IsEmpty() bool {
	for _, c := range Categories {
		if p.Text(c) != "" {
			return false
		}
	}
	return true
}

// ErrInvalidDescription indica que generated_description no es un objeto JSON reconocible.
var ErrInvalidDescription = errors.New("invalid profile description")

// ParseProfileFields interpreta generated_description. Acepta un objeto JSON o un string JSON
// que contiene el objeto. Un valor puede ser string o lista de strings (se unen con ", ");
// claves desconocidas y valores de otro tipo se ignoran.
func ParseProfileFields(raw []byte) (map[Category]string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		var inner string
		if errStr := json.Unmarshal(raw, &inner); errStr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
		}
		if err := json.Unmarshal([]byte(inner), &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
		}
	}
	if obj == nil {
		return nil, ErrInvalidDescription
	}

	fields := make(map[Category]string, len(Categories))
	for _, c := range Categories {
		value, ok := obj[string(c)]
		if !ok {
			continue
		}
		if text := fieldText(value); text != "" {
			fields[c] = text
		}
	}
	return fields, nil
}

func fieldText(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				parts = append(parts, item)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
