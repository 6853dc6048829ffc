package settlements

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"

	"go.einride.tech/aip/ordering"

	"github.com/failuretoload/datamonster-web/internal/services/web/backend"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// tableQuery is the survivor table state carried in the population URL.
type tableQuery struct {
	orderBy     ordering.OrderBy
	filter      string
	page        int
	pageSize    int
	columns     []string
	explicitCol bool
	dialog      string
	survivorID  string
}

// tableProblems collects query parameters that were rejected and ignored.
type tableProblems struct {
	orderBy error
	filter  error
}

func parseTableQuery(values url.Values) (tableQuery, survivorFilter, tableProblems) {
	var problems tableProblems
	q := tableQuery{page: 1, pageSize: defaultPageSize}

	if raw := strings.TrimSpace(values.Get("order_by")); raw != "" {
		var orderBy ordering.OrderBy
		err := orderBy.UnmarshalString(raw)
		if err == nil {
			err = orderBy.ValidateForPaths(columnKeys()...)
		}
		if err != nil {
			problems.orderBy = fmt.Errorf("order_by: %w", err)
		} else {
			q.orderBy = orderBy
		}
	}

	q.filter = strings.TrimSpace(values.Get("filter"))
	filter, err := parseSurvivorFilter(q.filter)
	if err != nil {
		problems.filter = err
		filter = survivorFilter{}
	}

	if page, err := strconv.Atoi(strings.TrimSpace(values.Get("page"))); err == nil && page > 0 {
		q.page = page
	}
	if size, err := strconv.Atoi(strings.TrimSpace(values.Get("page_size"))); err == nil && size > 0 {
		q.pageSize = min(size, maxPageSize)
	}

	if raw, ok := values["columns"]; ok {
		q.explicitCol = true
		q.columns = visibleColumns(raw)
	} else {
		q.columns = defaultVisible()
	}

	q.dialog = strings.TrimSpace(values.Get("dialog"))
	q.survivorID = strings.TrimSpace(values.Get("survivor"))
	return q, filter, problems
}

// visibleColumns keeps known keys in table order. Values may repeat the
// parameter or be comma separated. Name is always shown.
func visibleColumns(raw []string) []string {
	wanted := map[string]bool{"name": true}
	for _, value := range raw {
		for _, key := range strings.Split(value, ",") {
			wanted[strings.TrimSpace(key)] = true
		}
	}
	out := make([]string, 0, len(wanted))
	for _, c := range survivorColumns {
		if wanted[c.key] {
			out = append(out, c.key)
		}
	}
	return out
}

func (q tableQuery) orderString() string {
	parts := make([]string, 0, len(q.orderBy.Fields))
	for _, field := range q.orderBy.Fields {
		if field.Desc {
			parts = append(parts, field.Path+" desc")
		} else {
			parts = append(parts, field.Path)
		}
	}
	return strings.Join(parts, ", ")
}

// values encodes the query. Defaults are omitted so URLs stay short.
func (q tableQuery) values() url.Values {
	out := url.Values{}
	if order := q.orderString(); order != "" {
		out.Set("order_by", order)
	}
	if q.filter != "" {
		out.Set("filter", q.filter)
	}
	if q.page > 1 {
		out.Set("page", strconv.Itoa(q.page))
	}
	if q.pageSize != defaultPageSize {
		out.Set("page_size", strconv.Itoa(q.pageSize))
	}
	if q.explicitCol {
		out.Set("columns", strings.Join(q.columns, ","))
	}
	if q.dialog != "" {
		out.Set("dialog", q.dialog)
		if q.survivorID != "" {
			out.Set("survivor", q.survivorID)
		}
	}
	return out
}

func (q tableQuery) url(base string) string {
	encoded := q.values().Encode()
	if encoded == "" {
		return base
	}
	return base + "?" + encoded
}

func (q tableQuery) withoutDialog() tableQuery {
	q.dialog, q.survivorID = "", ""
	return q
}

func (q tableQuery) withDialog(kind, survivorID string) tableQuery {
	q.dialog, q.survivorID = kind, survivorID
	return q
}

func (q tableQuery) withPage(page int) tableQuery {
	q.page = page
	return q.withoutDialog()
}

// sortState reports how key is ordered: "asc", "desc" or "".
func (q tableQuery) sortState(key string) string {
	for _, field := range q.orderBy.Fields {
		if field.Path == key {
			if field.Desc {
				return "desc"
			}
			return "asc"
		}
	}
	return ""
}

// toggleSort cycles key through ascending, descending and unsorted, making
// it the primary order while sorted.
func (q tableQuery) toggleSort(key string) tableQuery {
	state := q.sortState(key)
	fields := make([]ordering.Field, 0, len(q.orderBy.Fields)+1)
	switch state {
	case "":
		fields = append(fields, ordering.Field{Path: key})
	case "asc":
		fields = append(fields, ordering.Field{Path: key, Desc: true})
	}
	for _, field := range q.orderBy.Fields {
		if field.Path != key {
			fields = append(fields, field)
		}
	}
	q.orderBy = ordering.OrderBy{Fields: fields}
	return q.withPage(1)
}

func (q tableQuery) visible(key string) bool {
	return slices.Contains(q.columns, key)
}

func sortSurvivors(survivors []backend.Survivor, orderBy ordering.OrderBy) {
	if len(orderBy.Fields) == 0 {
		return
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		for _, field := range orderBy.Fields {
			c, ok := columnsByKey[field.Path]
			if !ok {
				continue
			}
			cmp := compareValues(c.value(survivors[i]), c.value(survivors[j]))
			if cmp == 0 {
				continue
			}
			if field.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, _ := b.(string)
		return strings.Compare(strings.ToLower(av), strings.ToLower(bv))
	default:
		return 0
	}
}

// pageWindow is one page of a sorted, filtered listing.
type pageWindow struct {
	page      int
	pageCount int
	total     int
	items     []backend.Survivor
}

func paginate(items []backend.Survivor, page, pageSize int) pageWindow {
	total := len(items)
	pageCount := max(1, (total+pageSize-1)/pageSize)
	page = min(max(page, 1), pageCount)
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	return pageWindow{page: page, pageCount: pageCount, total: total, items: items[start:end]}
}
