package leadimport

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/leadline/lead-import-api/internal/domain"
)

// headerView is a row re-keyed by folded header, holding trimmed non-blank cells only.
type headerView map[string]string

func newHeaderView(raw RawRow) headerView {
	// Walk headers in sorted order so that two spellings folding to the same key
	// resolve the same way on every run.
	headers := make([]string, 0, len(raw))
	for h := range raw {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	v := make(headerView, len(headers))
	for _, h := range headers {
		key := domain.FoldHeader(h)
		if key == "" {
			continue
		}
		if _, ok := v[key]; ok {
			continue
		}
		text := strings.TrimSpace(cellText(raw[h]))
		if text == "" {
			continue
		}
		v[key] = text
	}
	return v
}

// first returns the value under the highest-priority alias of f that is present.
func (v headerView) first(f field) string {
	for _, alias := range foldedAliases[f] {
		if text, ok := v[alias]; ok {
			return text
		}
	}
	return ""
}

// cellText renders a decoded cell as text. Unknown types fall back to fmt.
func cellText(c any) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return formatTime(v)
	case *time.Time:
		if v == nil {
			return ""
		}
		return formatTime(*v)
	case float64:
		return formatFloat(v)
	case float32:
		return formatFloat(float64(v))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		if isNilPointer(v) {
			return ""
		}
		return fmt.Sprint(v)
	}
}

// isNilPointer reports typed nils such as (*url.URL)(nil) held in an interface.
func isNilPointer(c any) bool {
	rv := reflect.ValueOf(c)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// formatFloat prints integral values without exponent or fraction so numeric phone
// cells (4155550100) keep their digits.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
