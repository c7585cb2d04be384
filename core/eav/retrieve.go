package eav

import (
	"context"
	"slices"
	"strings"

	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/asaidimu/go-memberdata/core/schema"
	"go.uber.org/zap"
)

// AttributeFilter restricts one attribute. A member matches when its value
// contains Search or equals one of Values; a nil entry in Values matches
// members without a value.
type AttributeFilter struct {
	Search *string   `json:"search"`
	Values []*string `json:"values"`
}

func (f AttributeFilter) term() string {
	if f.Search == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*f.Search))
}

func (f AttributeFilter) active() bool {
	return f.term() != "" || len(f.Values) > 0
}

// QuerySpec selects, orders and pages the members of a sheet.
type QuerySpec struct {
	SheetID  int64                      `json:"sheet_id"`
	Offset   int                        `json:"offset"`
	PageSize int                        `json:"pagesize"`
	Filter   map[string]AttributeFilter `json:"filter"`
	// Sorter names an attribute of the sheet or "id".
	Sorter        string `json:"sorter"`
	SortDirection string `json:"sortDirection"`
	// Cutoff is the total up to which the full set is returned regardless
	// of PageSize. Zero uses the store default.
	Cutoff  int         `json:"cutoff"`
	Trashed TrashPolicy `json:"-"`
}

// QueryResult is a page of hydrated members and the filter options of the
// sheet's filterable attributes.
type QueryResult struct {
	Total   int64                `json:"total"`
	List    []Record             `json:"list"`
	Filters map[string][]*string `json:"filters"`
}

// Query builds the member query described by spec without running it. The
// builder selects member id and sheet_id and carries the filters, the trash
// policy and the ordering but no paging.
func (r *Request) Query(ctx context.Context, spec QuerySpec) (*query.Builder, error) {
	s := r.store
	attrs, err := r.Schema(ctx, spec.SheetID)
	if err != nil {
		return nil, err
	}

	member := s.tables.Member
	b := s.builder().
		Select(member+".id", member+".sheet_id").
		From(member)
	jc := s.newJoinContext(b)

	if spec.SheetID > 0 {
		b.Where(member+".sheet_id", spec.SheetID)
	}

	// The sort join is registered first so the alias numbering follows the
	// order in which attributes are referenced.
	var sortAttr *schema.Attribute
	if spec.Sorter != "" && spec.Sorter != "id" {
		if sortAttr = attrs.Find(spec.Sorter); sortAttr != nil {
			jc.alias(sortAttr.Name)
		} else {
			s.logger.Debug("Ignoring unknown sorter", zap.String("sorter", spec.Sorter), zap.Int64("sheet_id", spec.SheetID))
		}
	}

	for _, attr := range attrs.Filterable() {
		f, ok := spec.Filter[attr.Name]
		if !ok || !f.active() {
			continue
		}
		alias := jc.alias(attr.Name)
		sub := b.Sub()
		if term := f.term(); term != "" {
			sub.WhereRaw("LOWER("+alias+".value) LIKE ?", "%"+term+"%")
		}
		for _, v := range f.Values {
			sub.OrWhere(alias+".value", v)
		}
		sub.End()
	}

	if spec.Trashed != IncludeTrashed {
		b.Where(member+".softdeleted", nil)
	}

	dir := query.ParseSortDirection(spec.SortDirection)
	switch {
	case spec.Sorter == "id":
		b.OrderBy(member+".id", dir)
	case sortAttr != nil:
		alias := jc.alias(sortAttr.Name)
		b.OrderBy(alias+".value IS NULL", query.SortDirectionAsc)
		if sortAttr.Type.IsNumeric() {
			b.OrderBy("CAST("+alias+".value AS REAL)", dir)
		} else {
			b.OrderBy(alias+".value", dir)
		}
		b.OrderBy(member+".id", query.SortDirectionAsc)
	default:
		b.OrderBy(member+".id", query.SortDirectionAsc)
	}

	return b, b.Err()
}

// Retrieve counts the members matching spec, fetches them, hydrates them with
// their attributes and collects the filter options of the sheet. Paging only
// applies when the total exceeds the cutoff.
func (r *Request) Retrieve(ctx context.Context, spec QuerySpec) (*QueryResult, error) {
	s := r.store
	b, err := r.Query(ctx, spec)
	if err != nil {
		return nil, err
	}

	total, err := b.Count(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := spec.Cutoff
	if cutoff <= 0 {
		cutoff = s.opts.Cutoff
	}
	mode := "full"
	if total > int64(cutoff) && spec.PageSize > 0 && spec.Offset >= 0 {
		b.Limit(spec.PageSize).Offset(spec.Offset)
		mode = "paged"
	}

	rows, err := b.Get(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.CollectAttributes(ctx, rows)
	if err != nil {
		return nil, err
	}

	attrs, err := r.Schema(ctx, spec.SheetID)
	if err != nil {
		return nil, err
	}
	filters := make(map[string][]*string)
	for _, attr := range attrs.Filterable() {
		values, err := s.DistinctValues(ctx, spec.SheetID, attr.Name, s.opts.FilterMinCount)
		if err != nil {
			return nil, err
		}
		filters[attr.Name] = values
	}

	if s.metrics != nil {
		s.metrics.Retrievals.WithLabelValues(mode).Inc()
	}
	s.logger.Debug("Members retrieved",
		zap.Int64("sheet_id", spec.SheetID),
		zap.Int64("total", total),
		zap.Int("returned", len(list)),
		zap.String("mode", mode))

	return &QueryResult{Total: total, List: list, Filters: filters}, nil
}

// collectChunkSize bounds the member ids bound into one hydration query,
// keeping it under SQLite's limit on host parameters.
const collectChunkSize = 500

// CollectAttributes hydrates member rows with their attribute values, one
// query per collectChunkSize distinct ids. The result has the same length and
// order as rows; keys already present on a row are never overwritten.
func (s *Store) CollectAttributes(ctx context.Context, rows []query.Row) ([]Record, error) {
	records := make([]Record, len(rows))
	positions := make(map[int64][]int, len(rows))
	ids := make([]any, 0, len(rows))
	for i, row := range rows {
		rec := make(Record, len(row))
		for k, v := range row {
			rec[k] = v
		}
		records[i] = rec

		id, ok := query.ToInt64(row["id"])
		if !ok {
			continue
		}
		if _, seen := positions[id]; !seen {
			ids = append(ids, id)
		}
		positions[id] = append(positions[id], i)
	}
	if len(ids) == 0 {
		return records, nil
	}

	for chunk := range slices.Chunk(ids, collectChunkSize) {
		values, err := s.builder().
			Select("member_id", "attribute", "value").
			From(s.tables.EVA).
			WhereIn("member_id", chunk...).
			OrderBy("id", query.SortDirectionAsc).
			Get(ctx)
		if err != nil {
			return nil, err
		}

		for _, v := range values {
			id, _ := query.ToInt64(v["member_id"])
			attribute := query.ToString(v["attribute"])
			for _, i := range positions[id] {
				if _, exists := records[i][attribute]; !exists {
					records[i][attribute] = v["value"]
				}
			}
		}
	}
	return records, nil
}

// DistinctValues lists the values of attribute among the live members of a
// sheet, most frequent first. Values shared by fewer than minCount members
// are left out. A nil entry stands for members whose value is NULL.
func (s *Store) DistinctValues(ctx context.Context, sheetID int64, attribute string, minCount int) ([]*string, error) {
	eva, member := s.tables.EVA, s.tables.Member
	b := s.builder().
		Select(eva+".value AS value", "COUNT(*) AS cnt").
		From(eva).
		InnerJoin(member, "", member+".id = "+eva+".member_id").
		Where(eva+".attribute", attribute).
		Where(member+".softdeleted", nil)
	if sheetID > 0 {
		b.Where(member+".sheet_id", sheetID)
	}
	b.GroupBy(eva + ".value")
	if minCount > 1 {
		b.Having("COUNT(*) >= ?", minCount)
	}
	rows, err := b.
		OrderBy("cnt", query.SortDirectionDesc).
		OrderBy(eva+".value", query.SortDirectionAsc).
		Get(ctx)
	if err != nil {
		return nil, err
	}

	values := make([]*string, 0, len(rows))
	for _, row := range rows {
		values = append(values, optionalString(row["value"]))
	}
	return values, nil
}
