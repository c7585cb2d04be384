package eav

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/asaidimu/go-memberdata/core/schema"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

func configName(sheetID int64) string {
	return "sheet-" + strconv.FormatInt(sheetID, 10)
}

// Schema returns the attribute schema of a sheet. A sheet without stored
// configuration has an empty schema. Results are kept for the lifetime of
// the request.
func (r *Request) Schema(ctx context.Context, sheetID int64) (schema.Schema, error) {
	if cached, ok := r.schemas[sheetID]; ok {
		return cached, nil
	}
	s := r.store
	row, err := s.builder().
		Select("value").
		From(s.tables.Config).
		Where("name", configName(sheetID)).
		First(ctx)
	if err != nil {
		return nil, err
	}

	attrs := schema.Schema{}
	if row != nil {
		if err := json.Unmarshal([]byte(query.ToString(row["value"])), &attrs); err != nil {
			return nil, errors.Wrapf(err, "invalid configuration for sheet %d", sheetID)
		}
	}
	r.schemas[sheetID] = attrs
	return attrs, nil
}

// SaveConfiguration sanitises and stores the attribute schema of a sheet.
// Entries carrying an original name different from their name move the
// stored values of the sheet's members to the new name; values already
// stored under the new name are replaced. The stored schema is returned.
func (r *Request) SaveConfiguration(ctx context.Context, sheetID int64, attrs schema.Schema) (schema.Schema, error) {
	s := r.store
	exists, err := s.Exists(ctx, "sheet", sheetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "sheet %d", sheetID)
	}

	clean := schema.Sanitize(attrs)
	for i := range clean {
		if clean[i].Renamed() {
			if err := r.renameAttribute(ctx, sheetID, clean[i].OriginalName, clean[i].Name); err != nil {
				return nil, err
			}
		}
		clean[i].OriginalName = ""
	}

	data, err := json.Marshal(clean)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode configuration")
	}
	if err := s.putConfig(ctx, configName(sheetID), string(data)); err != nil {
		return nil, err
	}

	r.schemas[sheetID] = clean
	s.logger.Info("Configuration saved", zap.Int64("sheet_id", sheetID), zap.Strings("attributes", clean.Names()))
	r.emit(Event{Type: EventConfigurationSaved, SheetID: sheetID, Value: clean.Names()})
	return clean, nil
}

func (r *Request) renameAttribute(ctx context.Context, sheetID int64, from, to string) error {
	s := r.store
	members := func(sub *query.Builder) {
		sub.Select("id").From(s.tables.Member).Where("sheet_id", sheetID)
	}

	if _, err := s.builder().
		From(s.tables.EVA).
		Where("attribute", to).
		WhereInFunc("member_id", members).
		Delete(ctx); err != nil {
		return err
	}
	n, err := s.builder().
		From(s.tables.EVA).
		Set("attribute", to).
		Where("attribute", from).
		WhereInFunc("member_id", members).
		Update(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("Attribute renamed",
		zap.Int64("sheet_id", sheetID),
		zap.String("from", from),
		zap.String("to", to),
		zap.Int64("rows", n))
	return nil
}

func (s *Store) putConfig(ctx context.Context, name, value string) error {
	n, err := s.builder().
		From(s.tables.Config).
		Set("value", value).
		Where("name", name).
		Update(ctx)
	if err != nil || n > 0 {
		return err
	}
	_, err = s.builder().
		From(s.tables.Config).
		Set("name", name).
		Set("value", value).
		Insert(ctx)
	return err
}
