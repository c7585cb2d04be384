package eav

import (
	"context"

	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Sheets lists the sheets ordered by name.
func (s *Store) Sheets(ctx context.Context, policy TrashPolicy) ([]*Sheet, error) {
	b := s.builder().From(s.tables.Sheet)
	if policy != IncludeTrashed {
		b.Where("softdeleted", nil)
	}
	rows, err := b.
		OrderBy("name", query.SortDirectionAsc).
		OrderBy("id", query.SortDirectionAsc).
		Get(ctx)
	if err != nil {
		return nil, err
	}
	sheets := make([]*Sheet, len(rows))
	for i, row := range rows {
		sheets[i] = sheetFromRow(row)
	}
	return sheets, nil
}

// LoadSheet returns the sheet with the given id, or nil when there is none.
func (s *Store) LoadSheet(ctx context.Context, id int64) (*Sheet, error) {
	row, err := s.builder().From(s.tables.Sheet).Where("id", id).First(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	return sheetFromRow(row), nil
}

// SaveSheet validates and stores a sheet, inserting it when it is new. The
// validation messages are returned when the sheet is rejected; in that case
// nothing is written.
func (r *Request) SaveSheet(ctx context.Context, sheet *Sheet) ([]string, error) {
	s := r.store
	if ok, messages := s.validator.ValidateModel(ctx, sheet); !ok {
		return messages, nil
	}

	sheet.Modified = s.timestamp()
	sheet.Modifier = r.actor
	b := s.builder().
		From(s.tables.Sheet).
		Set("name", sheet.Name).
		Set("modified", sheet.Modified).
		Set("modifier", sheet.Modifier)

	if sheet.IsNew() {
		id, err := b.Insert(ctx)
		if err != nil {
			return nil, err
		}
		sheet.ID = id
	} else {
		n, err := b.Where("id", sheet.ID).Update(ctx)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, errors.Wrapf(ErrNotFound, "sheet %d", sheet.ID)
		}
	}

	s.logger.Info("Sheet saved", zap.Int64("sheet_id", sheet.ID), zap.String("name", sheet.Name))
	r.emit(Event{Type: EventSheetSaved, SheetID: sheet.ID, Value: sheet.Name})
	return nil, nil
}

// DeleteSheet soft-deletes a sheet. Its members and values are kept.
// Deleting a missing or already deleted sheet succeeds without changes.
func (r *Request) DeleteSheet(ctx context.Context, id int64) error {
	s := r.store
	n, err := s.builder().
		From(s.tables.Sheet).
		Set("softdeleted", s.timestamp()).
		Set("deletor", r.actor).
		Where("id", id).
		Where("softdeleted", nil).
		Update(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("Sheet deleted", zap.Int64("sheet_id", id))
		r.emit(Event{Type: EventSheetDeleted, SheetID: id})
	}
	return nil
}
