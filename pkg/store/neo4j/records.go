package neo4j

import (
	"errors"
	"fmt"

	n4j "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var errNoRecords = errors.New("query returned no records")

// Null values decode to the zero value. Missing keys and values of the wrong
// type are errors.

func recordString(r *n4j.Record, key string) (string, error) {
	v, _, err := n4j.GetRecordValue[string](r, key)
	return v, err
}

func recordInt(r *n4j.Record, key string) (int, error) {
	v, _, err := n4j.GetRecordValue[int64](r, key)
	return int(v), err
}

func recordFloat(r *n4j.Record, key string) (float64, error) {
	v, _, err := n4j.GetRecordValue[float64](r, key)
	return v, err
}

func recordStrings(r *n4j.Record, key string) ([]string, error) {
	list, _, err := n4j.GetRecordValue[[]any](r, key)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list))
	for i, v := range list {
		switch s := v.(type) {
		case nil:
		case string:
			out = append(out, s)
		default:
			return nil, fmt.Errorf("expected string at %s[%d], got %T", key, i, v)
		}
	}
	return out, nil
}

func recordMaps(r *n4j.Record, key string) ([]map[string]any, error) {
	list, _, err := n4j.GetRecordValue[[]any](r, key)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(list))
	for i, v := range list {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected map at %s[%d], got %T", key, i, v)
		}
		out = append(out, m)
	}
	return out, nil
}

func firstRecord(result *n4j.EagerResult) (*n4j.Record, error) {
	if result == nil || len(result.Records) == 0 {
		return nil, errNoRecords
	}
	return result.Records[0], nil
}

func firstString(result *n4j.EagerResult, key string) (string, error) {
	r, err := firstRecord(result)
	if err != nil {
		return "", err
	}
	return recordString(r, key)
}

func firstInt(result *n4j.EagerResult, key string) (int, error) {
	r, err := firstRecord(result)
	if err != nil {
		return 0, err
	}
	return recordInt(r, key)
}

func firstFloat(result *n4j.EagerResult, key string) (float64, error) {
	r, err := firstRecord(result)
	if err != nil {
		return 0, err
	}
	return recordFloat(r, key)
}

// mapString reads a string field of a map built in Cypher.
func mapString(m map[string]any, key string) (string, error) {
	switch v := m[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("expected string for %q, got %T", key, v)
	}
}
