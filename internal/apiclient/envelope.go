package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Бэкенд отдаёт списки то голым массивом, то в обёртке {"data": [...]},
// а иногда {"data": {"items": [...]}}. Все варианты сводятся здесь,
// дальше по коду ходит только канонический вид.

var nullLiteral = []byte("null")

func isEmptyPayload(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(raw, nullLiteral)
}

// decodeList разбирает список записей в любой из поддерживаемых обёрток
func decodeList[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if isEmptyPayload(raw) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode list envelope: %w", err)
		}
		for _, key := range []string{"data", "items", "results"} {
			inner, ok := envelope[key]
			if !ok {
				continue
			}
			return decodeList[T](inner)
		}
		return nil, fmt.Errorf("decode list: no data field in object payload")
	default:
		return nil, fmt.Errorf("decode list: unexpected payload %q", truncate(string(raw), 40))
	}
}

// decodeOne разбирает одиночную запись: голый объект или {"data": {...}}
func decodeOne[T any](raw []byte) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if isEmptyPayload(raw) {
		return nil, nil
	}
	if raw[0] != '{' {
		return nil, fmt.Errorf("decode object: unexpected payload %q", truncate(string(raw), 40))
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode object envelope: %w", err)
	}
	if inner, ok := envelope["data"]; ok {
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '{' {
			raw = inner
		}
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return &out, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
