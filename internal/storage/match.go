package storage

import (
	"fmt"
	"sort"
)

// matchSelector reports whether rec satisfies every equality clause in the
// selector. A clause against an array field matches when the array contains
// the value (so {"metadata.tags": "go"} matches a tagged document).
func matchSelector(rec Record, selector map[string]any) bool {
	for path, want := range selector {
		got, ok := rec.Field(path)
		if !ok {
			return false
		}
		if arr, isArr := got.([]any); isArr {
			if _, wantArr := want.([]any); !wantArr {
				if !sliceContains(arr, want) {
					return false
				}
				continue
			}
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

func sliceContains(arr []any, want any) bool {
	for _, v := range arr {
		if valueEqual(v, want) {
			return true
		}
	}
	return false
}

// valueEqual compares JSON values. Numbers are coerced to float64 so that a
// selector built with Go ints matches values decoded from JSON.
func valueEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}

// sortRecords orders recs by the sort fields, ascending unless Desc. Missing
// fields sort last. The sort is stable so equal keys keep storage order.
func sortRecords(recs []Record, fields []SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, f := range fields {
			av, aok := recs[i].Field(f.Field)
			bv, bok := recs[j].Field(f.Field)
			if !aok && !bok {
				continue
			}
			if !aok {
				return false
			}
			if !bok {
				return true
			}
			c := compareValues(av, bv)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders two JSON values of the same kind; mixed kinds compare
// by their string form.
func compareValues(a, b any) int {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	ab, aIsBool := a.(bool)
	bb, bIsBool := b.(bool)
	if aIsBool && bIsBool {
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}

// paginate applies skip and limit to recs. Limit 0 means no limit.
func paginate(recs []Record, skip, limit int) []Record {
	if skip > 0 {
		if skip >= len(recs) {
			return nil
		}
		recs = recs[skip:]
	}
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}
