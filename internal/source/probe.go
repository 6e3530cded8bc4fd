package source

import (
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Conventional keys that hold the record list in a response body.
var recordKeys = []string{"data", "records", "results"}

// Records locates the record list in a decoded JSON body. The body may be a
// top-level array or an object holding the list under one of keys, tried in
// order; a key may be a dotted path such as "result.records". Each record is
// unwrapped from a nested "fields" object when present. Non-object entries
// are skipped.
func Records(body any, keys ...string) ([]Fields, error) {
	if len(keys) == 0 {
		keys = recordKeys
	}

	list, ok := body.([]any)
	if !ok {
		obj, isObj := body.(map[string]any)
		if !isObj {
			return nil, eris.Errorf("source: unexpected response body %T", body)
		}
		list, ok = lookupList(obj, keys)
		if !ok {
			return nil, eris.Errorf("source: no record list under %s", strings.Join(keys, ", "))
		}
	}

	out := make([]Fields, 0, len(list))
	skipped := 0
	for _, item := range list {
		rec, isObj := item.(map[string]any)
		if !isObj {
			skipped++
			continue
		}
		if nested, hasFields := rec["fields"].(map[string]any); hasFields {
			rec = nested
		}
		out = append(out, NewFields(rec))
	}
	if skipped > 0 {
		zap.L().Debug("source: skipped non-object records", zap.Int("skipped", skipped))
	}
	return out, nil
}

func lookupList(obj map[string]any, keys []string) ([]any, bool) {
	for _, key := range keys {
		var cur any = obj
		for _, part := range strings.Split(key, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				cur = nil
				break
			}
			cur = m[part]
		}
		if list, ok := cur.([]any); ok {
			return list, true
		}
	}
	return nil, false
}
