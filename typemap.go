package main

import (
	"fmt"
	"strings"
)

// ConfigError marks a malformed per-column override. It is raised before
// any DDL is issued and aborts schema synthesis for the table.
type ConfigError struct {
	Column string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid override for column %q: %s", e.Column, e.Reason)
}

const (
	defaultStringLen = 255
	defaultKeyLen    = 100
)

// mapSinkType returns the PostgreSQL type declaration for a source
// column, honoring its override and forcing bounded text on key columns.
func mapSinkType(col Column, ov Override, hasOverride, isKey bool) (string, error) {
	var pgType string

	if hasOverride && ov.Type != "" {
		target := SourceType(strings.ToUpper(strings.TrimSpace(ov.Type)))
		switch target {
		case TypeString:
			length := ov.Length
			if length <= 0 {
				length = defaultStringLen
			}
			pgType = fmt.Sprintf("varchar(%d)", length)
		case TypeText, TypeDate, TypeTime, TypeInt, TypeFloat, TypeDecimal, TypeBoolean:
			pgType = defaultSinkType(target)
		default:
			return "", &ConfigError{Column: col.Name, Reason: fmt.Sprintf("unknown target type %q", ov.Type)}
		}
	} else {
		pgType = defaultSinkType(col.SourceType)
	}

	// Unbounded text cannot back a primary or unique key in the sink;
	// substitute bounded text using key_length or the default.
	if isKey && pgType == "text" {
		keyLen := ov.KeyLength
		if keyLen <= 0 {
			keyLen = defaultKeyLen
		}
		pgType = fmt.Sprintf("varchar(%d)", keyLen)
	}

	return pgType, nil
}

func defaultSinkType(t SourceType) string {
	switch t {
	case TypeText:
		return "text"
	case TypeString:
		return fmt.Sprintf("varchar(%d)", defaultStringLen)
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "double precision"
	case TypeDecimal:
		return "numeric(10,2)"
	case TypeBoolean:
		return "smallint"
	default:
		// Unrecognized probe types degrade to text, matching the
		// original's catch-all mapping.
		return "text"
	}
}
