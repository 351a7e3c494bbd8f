package main

import (
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	defaultTimeLayout = "3:04 PM"
	time24Layout      = "15:04:05"
	dateISOLayout     = "2006-01-02"
	dateUSLayout      = "01/02/2006"
)

// columnFault records a column whose value could not be converted and
// was degraded to NULL. The copy flow loads the row anyway; the sync
// flow diverts faulted rows to the bad-record log.
type columnFault struct {
	Column string
	Value  any
	Err    error
}

// normalizeRow converts one raw source row into sink-ready values,
// in declared column order. It is total: a faulty column becomes NULL
// and is reported as a fault, never an error that aborts the row.
func normalizeRow(raw RawRow, spec *TableSpec, trimText bool, logger *log.Logger) (NormalizedRow, []columnFault) {
	if logger == nil {
		logger = log.Default()
	}

	out := make(NormalizedRow, 0, len(spec.Columns))
	var faults []columnFault

	for i, col := range spec.Columns {
		var val any
		var err error

		if i < len(raw) {
			val = raw[i]
		} else {
			err = fmt.Errorf("row has %d values, column %d missing", len(raw), i)
		}

		if err == nil {
			if ov, ok := spec.override(col.Name); ok {
				switch SourceType(strings.ToUpper(ov.Type)) {
				case TypeTime:
					val, err = normalizeTimeValue(val, ov.Format)
				case TypeDate:
					val, err = normalizeDateValue(val)
				}
			}
		}

		if err != nil {
			logger.Printf("WARN: column %s: value %v: %v", col.Name, val, err)
			faults = append(faults, columnFault{Column: col.Name, Value: val, Err: err})
			val = nil
		}

		if trimText {
			if s, ok := val.(string); ok {
				val = strings.TrimSpace(s)
			}
		}

		out = append(out, val)
	}

	return out, faults
}

// normalizeTimeValue coerces a TIME-override value to 24-hour HH:MM:SS.
// String input is uppercased and, when no AM/PM suffix is present, a
// trailing "P"/"A" is expanded to "PM"/"AM" before the 12-hour parse;
// a failed 12-hour parse retries as strict 24-hour.
func normalizeTimeValue(val any, layout string) (any, error) {
	if layout == "" {
		layout = defaultTimeLayout
	}

	switch v := val.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.ToUpper(strings.TrimSpace(v))
		if s == "" {
			return nil, nil
		}
		if !strings.HasSuffix(s, "AM") && !strings.HasSuffix(s, "PM") {
			s = strings.ReplaceAll(s, "P", "PM")
			s = strings.ReplaceAll(s, "A", "AM")
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time24Layout), nil
		}
		if t, err := time.Parse(time24Layout, s); err == nil {
			return t.Format(time24Layout), nil
		}
		return nil, fmt.Errorf("unrecognized time %q", v)
	case time.Time:
		return v.Format(time24Layout), nil
	default:
		return nil, fmt.Errorf("unexpected time value of type %T", val)
	}
}

// normalizeDateValue coerces a DATE-override value to a date-only
// time.Time. String input tries ISO YYYY-MM-DD, then MM/DD/YYYY.
// Datetime input is truncated to its date component.
func normalizeDateValue(val any) (any, error) {
	switch v := val.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		if t, err := time.Parse(dateISOLayout, s); err == nil {
			return t, nil
		}
		if t, err := time.Parse(dateUSLayout, s); err == nil {
			return t, nil
		}
		return nil, fmt.Errorf("unrecognized date %q", v)
	case time.Time:
		return time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, v.Location()), nil
	default:
		return nil, fmt.Errorf("unexpected date value of type %T", val)
	}
}
