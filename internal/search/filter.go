package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/obsnet/dataproduct-catalog/internal/grid"
	"github.com/obsnet/dataproduct-catalog/internal/logger"
	"github.com/obsnet/dataproduct-catalog/internal/types"
)

// DateFormat is the wire format of date_created values.
const DateFormat = "2006-01-02"

// Open-ended defaults of the free-text date range panel.
const (
	DefaultStartDate = "1970-01-01"
	DefaultEndDate   = "2100-01-01"
)

// ErrUnsupportedOperator reports a filter item with an operator the engine
// does not know. It is local to that one item; overall filtering continues.
var ErrUnsupportedOperator = errors.New("search: unsupported filter operator")

// AccessFilter keeps the rows the caller may see: rows with no
// context.access_group pass unconditionally, rows with one pass when the
// group is among the caller's groups.
func AccessFilter(rows []map[string]any, userGroups []string) []map[string]any {
	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		accessGroup, ok := row["context.access_group"]
		if !ok {
			filtered = append(filtered, row)
			continue
		}
		groupName := fmt.Sprint(accessGroup)
		for _, g := range userGroups {
			if g == groupName {
				filtered = append(filtered, row)
				break
			}
		}
	}
	return filtered
}

// CompareStrings evaluates one string filter operator.
func CompareStrings(operand any, operator, comparator string) (bool, error) {
	value := ""
	if operand != nil {
		value = fmt.Sprint(operand)
	}
	switch operator {
	case "contains":
		return strings.Contains(value, comparator), nil
	case "equals":
		return value == comparator, nil
	case "startsWith":
		return strings.HasPrefix(value, comparator), nil
	case "endsWith":
		return strings.HasSuffix(value, comparator), nil
	case "isAnyOf":
		for _, candidate := range strings.Split(comparator, ",") {
			if value == candidate {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q for strings", ErrUnsupportedOperator, operator)
	}
}

// CompareIntegers evaluates one integer filter operator.
func CompareIntegers(operand int64, operator, comparator string) (bool, error) {
	switch operator {
	case "equals":
		parsed, err := strconv.ParseInt(strings.TrimSpace(comparator), 10, 64)
		if err != nil {
			return false, nil
		}
		return operand == parsed, nil
	case "isAnyOf":
		for _, candidate := range strings.Split(comparator, ",") {
			parsed, err := strconv.ParseInt(strings.TrimSpace(candidate), 10, 64)
			if err != nil {
				continue
			}
			if operand == parsed {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q for integers", ErrUnsupportedOperator, operator)
	}
}

// CompareDates evaluates one date filter operator. greaterThan and lessThan
// are inclusive.
func CompareDates(operand time.Time, operator string, comparator time.Time) (bool, error) {
	switch operator {
	case "equals":
		return operand.Equal(comparator), nil
	case "greaterThan":
		return operand.Equal(comparator) || operand.After(comparator), nil
	case "lessThan":
		return operand.Equal(comparator) || operand.Before(comparator), nil
	default:
		return false, fmt.Errorf("%w: %q for dates", ErrUnsupportedOperator, operator)
	}
}

// FilterByItem applies one field/operator/value item to the rows. The
// date_created field is compared as a date; numeric row values use integer
// comparison where the operator allows it; everything else compares as
// strings. An unsupported operator returns the rows unchanged together with
// ErrUnsupportedOperator so the caller can skip the item.
func FilterByItem(rows []map[string]any, field, operator, value string) ([]map[string]any, error) {
	if field == "date_created" {
		comparator, err := time.Parse(DateFormat, value)
		if err != nil {
			return rows, fmt.Errorf("parse date comparator %q: %w", value, err)
		}
		return filterDates(rows, field, operator, comparator)
	}

	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		operand := row[field]
		matched, err := compareValue(operand, operator, value)
		if err != nil {
			return rows, err
		}
		if matched {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

func compareValue(operand any, operator, value string) (bool, error) {
	switch n := operand.(type) {
	case int:
		if operator == "equals" || operator == "isAnyOf" {
			return CompareIntegers(int64(n), operator, value)
		}
	case int64:
		if operator == "equals" || operator == "isAnyOf" {
			return CompareIntegers(n, operator, value)
		}
	case float64:
		if n == float64(int64(n)) && (operator == "equals" || operator == "isAnyOf") {
			return CompareIntegers(int64(n), operator, value)
		}
	}
	return CompareStrings(operand, operator, value)
}

func filterDates(rows []map[string]any, field, operator string, comparator time.Time) ([]map[string]any, error) {
	// Validate the operator up front so an unsupported one skips the whole
	// item instead of silently dropping every row.
	if _, err := CompareDates(comparator, operator, comparator); err != nil {
		return rows, err
	}
	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		raw, ok := row[field].(string)
		if !ok {
			continue
		}
		operand, err := time.Parse(DateFormat, raw)
		if err != nil {
			continue
		}
		matched, _ := CompareDates(operand, operator, comparator)
		if matched {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

// FilterByKeyValuePairs keeps the rows whose original document matches at
// least one key/value pair, with the key resolved as a dot path into the
// unflattened document. The "*":"*" wildcard matches everything. Rows with
// no backing document are dropped.
func FilterByKeyValuePairs(rows []map[string]any, docs map[string]map[string]any, pairs []types.KeyValuePair) []map[string]any {
	if len(pairs) == 0 {
		return rows
	}
	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		uid, _ := row["uid"].(string)
		doc, ok := docs[uid]
		if !ok {
			continue
		}
		for _, pair := range pairs {
			if pair.Key == "*" && pair.Value == "*" {
				filtered = append(filtered, row)
				break
			}
			value, found := grid.FindNested(doc, pair.Key)
			if found && fmt.Sprint(value) == pair.Value {
				filtered = append(filtered, row)
				break
			}
		}
	}
	return filtered
}

// ApplyFilters runs the structured filter items over the rows, combined with
// AND. Malformed or unsupported items are skipped; filtering never aborts
// the whole query.
func ApplyFilters(rows []map[string]any, docs map[string]map[string]any, items []types.FilterItem, log *logger.Logger) []map[string]any {
	filtered := rows
	for _, item := range items {
		if item.Field == "" {
			continue
		}
		if item.Field == "formFields" {
			if len(item.KeyPairs) > 0 {
				filtered = FilterByKeyValuePairs(filtered, docs, item.KeyPairs)
			}
			continue
		}
		if item.Operator == "" || item.Value == "" {
			continue
		}
		next, err := FilterByItem(filtered, item.Field, item.Operator, item.Value)
		if err != nil {
			log.Warn("Skipping filter item", "field", item.Field, "operator", item.Operator, "error", err)
			continue
		}
		filtered = next
	}
	return filtered
}
