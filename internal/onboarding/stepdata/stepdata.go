// Package stepdata decodes step payloads as the backend stores them: a JSON
// value, a JSON string holding JSON, or a legacy "{k=v, k2=v2}" blob.
package stepdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errNotLooseObject = errors.New("not a key=value object")

// Rewrites applied, in order, to a legacy "{k=v, k2=v2}" blob to turn it into JSON.
// Numbers with a leading zero ("0123") stay strings; JSON cannot carry them.
var (
	looseKey           = regexp.MustCompile(`(\w+):`)
	looseValue         = regexp.MustCompile(`:\s*([^,}]+?)\s*([,}])`)
	looseTrailingValue = regexp.MustCompile(`:\s*([^,}]+?)\s*$`)
	quotedNumber       = regexp.MustCompile(`:\s*"(-?(?:0|[1-9]\d*)(?:\.\d+)?)"\s*([,}])`)
	quotedNumberEnd    = regexp.MustCompile(`:\s*"(-?(?:0|[1-9]\d*)(?:\.\d+)?)"\s*$`)
	quotedBool         = regexp.MustCompile(`:\s*"(true|false)"\s*([,}])`)
	quotedBoolEnd      = regexp.MustCompile(`:\s*"(true|false)"\s*$`)
	trailingComma      = regexp.MustCompile(`,\s*}`)
)

// ParseLoose decodes step data held as a string. Well-formed JSON is decoded
// directly; otherwise the string is treated as a legacy key=value object and
// rewritten into JSON. An empty string decodes to nil.
func ParseLoose(raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if json.Valid([]byte(trimmed)) {
		return decodeJSON([]byte(trimmed))
	}

	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, errNotLooseObject
	}

	clean := strings.ReplaceAll(trimmed, "=", ":")
	clean = looseKey.ReplaceAllString(clean, `"${1}":`)
	clean = looseValue.ReplaceAllString(clean, `:"${1}"${2}`)
	clean = looseTrailingValue.ReplaceAllString(clean, `:"${1}"`)
	clean = quotedNumber.ReplaceAllString(clean, `:${1}${2}`)
	clean = quotedNumberEnd.ReplaceAllString(clean, `:${1}`)
	clean = quotedBool.ReplaceAllString(clean, `:${1}${2}`)
	clean = quotedBoolEnd.ReplaceAllString(clean, `:${1}`)
	clean = trailingComma.ReplaceAllString(clean, "}")

	value, err := decodeJSON([]byte(clean))
	if err != nil {
		return nil, fmt.Errorf("rewritten data is not valid JSON: %w", err)
	}
	return value, nil
}

// Decode reads a stored step payload. Absent data and JSON null decode to nil.
// When the payload cannot be decoded, the returned value is the payload as
// text (unquoted when it was a JSON string) alongside the error.
func Decode(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] != '"' {
		value, err := decodeJSON(trimmed)
		if err != nil {
			return string(trimmed), err
		}
		return value, nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return string(trimmed), err
	}

	value, err := ParseLoose(s)
	if err != nil {
		return s, err
	}
	return value, nil
}

func decodeJSON(data []byte) (any, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}
