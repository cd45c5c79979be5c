package comanda

import (
	"strconv"
	"strings"
)

// Intake violation messages, one per rule.
const (
	msgCustomer = "field 'customer' is required and must be non-empty text"
	msgItems    = "field 'items' must be a list with at least one item"
	msgItemText = "every item must be non-empty text"
	msgTable    = "field 'table' must be a positive integer"
)

// Validate normalizes and validates an untyped intake payload. It runs
// every rule in one pass and accumulates all violations instead of
// stopping at the first. On success the returned violation list is empty
// and the draft carries trimmed fields with the table number coerced to
// an int. No side effects.
func Validate(payload map[string]any) (Draft, []string) {
	var draft Draft
	var violations []string

	customer, ok := payload["customer"].(string)
	customer = strings.TrimSpace(customer)
	if !ok || customer == "" {
		violations = append(violations, msgCustomer)
	} else {
		draft.Customer = customer
	}

	switch items := payload["items"].(type) {
	case []any:
		if len(items) == 0 {
			violations = append(violations, msgItems)
			break
		}
		normalized := make([]string, 0, len(items))
		valid := true
		for _, raw := range items {
			item, ok := raw.(string)
			item = strings.TrimSpace(item)
			if !ok || item == "" {
				valid = false
				break
			}
			normalized = append(normalized, item)
		}
		if !valid {
			violations = append(violations, msgItemText)
			break
		}
		draft.Items = normalized
	default:
		violations = append(violations, msgItems)
	}

	table, ok := coerceTable(payload["table"])
	if !ok || table <= 0 {
		violations = append(violations, msgTable)
	} else {
		draft.Table = table
	}

	if len(violations) > 0 {
		return Draft{}, violations
	}
	return draft, nil
}

// coerceTable accepts JSON numbers and numeric strings. Floats truncate
// toward zero, matching the original intake behavior.
func coerceTable(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
