package engine

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// evaluateJSONLogic applies a JSON Logic expression to the evaluation
// context. The three namespaces are exposed as top-level keys so rules can
// reference e.g. {"var": "params.source"}.
func evaluateJSONLogic(expression string, evalCtx Context) bool {
	data := map[string]any{
		"params": emptyIfNil(evalCtx.Params),
		"user":   emptyIfNil(evalCtx.User),
		"device": emptyIfNil(evalCtx.Device),
	}
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return false
	}

	var resultBuf bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(dataBytes), &resultBuf); err != nil {
		return false
	}

	var result any
	if err := json.Unmarshal(resultBuf.Bytes(), &result); err != nil {
		return false
	}
	return isTruthy(result)
}

func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// isTruthy follows JavaScript-like truthiness rules, matching how JSON Logic
// results are interpreted client-side.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
