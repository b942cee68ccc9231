package models

import (
	"fmt"
	"strconv"
)

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

func parseBool(attrs map[string]string, field string) (bool, error) {
	raw, ok := attrs[field]
	if !ok || raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("attribute %s: %w", field, err)
	}
	return v, nil
}

func formatInt(n int) string {
	return strconv.Itoa(n)
}

func parseInt(attrs map[string]string, field string) (int, error) {
	raw, ok := attrs[field]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", field, err)
	}
	return v, nil
}

func requireAttr(attrs map[string]string, field string) (string, error) {
	v := attrs[field]
	if v == "" {
		return "", fmt.Errorf("attribute %s is required", field)
	}
	return v, nil
}
