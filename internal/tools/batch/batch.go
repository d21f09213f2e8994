package batch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the outcome of one item in a batch of message operations.
type Result struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "success" or "error"
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates per-item results for a whole batch.
type Summary struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray parses a tool parameter that may arrive as a single
// string, an array of strings, or a JSON-encoded array inside a string
// (some MCP clients serialize array arguments that way). A string that
// merely starts with "[" but is not valid JSON is kept as a literal value.
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var decoded []string
			if err := json.Unmarshal([]byte(v), &decoded); err == nil {
				return validateElements(decoded, paramName)
			}
		}
		return []string{v}, nil
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		result := make([]string, 0, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}
}

func validateElements(values []string, paramName string) ([]string, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}
	for i, v := range values {
		if v == "" {
			return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
		}
	}
	return values, nil
}

// ProcessBatch runs fn once per message ID and collects the per-item
// outcomes in input order. Failures do not stop the batch.
func ProcessBatch(ids []string, fn func(id string) (string, error)) []Result {
	results := make([]Result, 0, len(ids))

	for _, id := range ids {
		res, err := fn(id)
		if err != nil {
			results = append(results, NewErrorResult(id, err))
		} else {
			results = append(results, NewSuccessResult(id, res))
		}
	}

	return results
}

// FormatResults renders batch results as an indented JSON summary.
func FormatResults(results []Result) string {
	summary := Summary{
		Total:   len(results),
		Results: results,
	}

	for _, r := range results {
		if r.Status == "success" {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	jsonBytes, _ := json.MarshalIndent(summary, "", "  ")
	return string(jsonBytes)
}

// NewSuccessResult creates a success result for one item.
func NewSuccessResult(id, message string) Result {
	return Result{
		ID:     id,
		Status: "success",
		Result: message,
	}
}

// NewErrorResult creates an error result for one item.
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: "error",
		Error:  err.Error(),
	}
}
