package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// SmartParse decodes model output into schema, trying progressively
// more forgiving strategies: standard JSON, then mechanical repair
// (unquoted keys, trailing commas, stray fences), then Hjson. It
// returns the text that finally decoded.
func SmartParse(input string, schema interface{}) (string, error) {
	if err := json.Unmarshal([]byte(input), schema); err == nil {
		return input, nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	if relaxed, err := parseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(relaxed), schema); err == nil {
			return relaxed, nil
		}
	}

	return "", fmt.Errorf("all parsing strategies failed for input")
}

// parseHJSON reads Hjson (comments, unquoted keys, optional commas)
// and re-emits standard JSON.
func parseHJSON(input string) (string, error) {
	var value interface{}
	if err := hjson.Unmarshal([]byte(input), &value); err != nil {
		return "", err
	}
	out, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
