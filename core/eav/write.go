package eav

import (
	"context"

	"github.com/asaidimu/go-memberdata/core/query"
	"github.com/asaidimu/go-memberdata/core/rules"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// WriteResult is the outcome of SaveAttributes. Record is only set when every
// attribute was accepted.
type WriteResult struct {
	Messages []string `json:"messages,omitempty"`
	Record   Record   `json:"record,omitempty"`
}

// OK reports whether every attribute was accepted.
func (w *WriteResult) OK() bool {
	return len(w.Messages) == 0
}

// CreateMember adds a member to a live sheet.
func (r *Request) CreateMember(ctx context.Context, sheetID int64) (*Member, error) {
	s := r.store
	exists, err := s.Exists(ctx, "sheet", sheetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "sheet %d", sheetID)
	}

	m := &Member{SheetID: sheetID, Modifier: r.actor, Modified: s.timestamp()}
	id, err := s.builder().
		From(s.tables.Member).
		Set("sheet_id", m.SheetID).
		Set("modified", m.Modified).
		Set("modifier", m.Modifier).
		Insert(ctx)
	if err != nil {
		return nil, err
	}
	m.ID = id

	s.logger.Info("Member created", zap.Int64("member_id", id), zap.Int64("sheet_id", sheetID))
	r.emit(Event{Type: EventMemberCreated, SheetID: sheetID, MemberID: id})
	return m, nil
}

// LoadMember returns the member with the given id, soft-deleted or not, or
// nil when there is none.
func (s *Store) LoadMember(ctx context.Context, id int64) (*Member, error) {
	row, err := s.builder().From(s.tables.Member).Where("id", id).First(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	return memberFromRow(row), nil
}

// LoadRecord returns the hydrated record of a member, or nil when there is none.
func (s *Store) LoadRecord(ctx context.Context, id int64) (Record, error) {
	row, err := s.builder().
		Select("id", "sheet_id").
		From(s.tables.Member).
		Where("id", id).
		First(ctx)
	if err != nil || row == nil {
		return nil, err
	}
	records, err := s.CollectAttributes(ctx, []query.Row{row})
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// DeleteMember soft-deletes a member. Deleting a missing or already deleted
// member succeeds without changes.
func (r *Request) DeleteMember(ctx context.Context, id int64) error {
	s := r.store
	n, err := s.builder().
		From(s.tables.Member).
		Set("softdeleted", s.timestamp()).
		Set("deletor", r.actor).
		Where("id", id).
		Where("softdeleted", nil).
		Update(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		s.logger.Debug("Member already deleted or missing", zap.Int64("member_id", id))
		return nil
	}
	s.logger.Info("Member deleted", zap.Int64("member_id", id))
	r.emit(Event{Type: EventMemberDeleted, MemberID: id})
	return nil
}

// SaveAttributes validates and stores attribute values of a member. Each
// attribute is validated and written on its own: a rejected value does not
// prevent the others from being saved. Attributes are handled in schema
// order; names that are not part of the sheet's schema are ignored.
func (r *Request) SaveAttributes(ctx context.Context, memberID int64, values map[string]any) (*WriteResult, error) {
	s := r.store
	member, err := s.LoadMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil || member.SoftDeleted != nil {
		return nil, errors.Wrapf(ErrNotFound, "member %d", memberID)
	}
	attrs, err := r.Schema(ctx, member.SheetID)
	if err != nil {
		return nil, err
	}

	for name := range values {
		if attrs.Find(name) == nil {
			s.logger.Debug("Ignoring unknown attribute", zap.String("attribute", name), zap.Int64("member_id", memberID))
		}
	}

	result := &WriteResult{}
	saved := 0
	for _, attr := range attrs {
		name := attr.Name
		value, ok := values[name]
		if !ok {
			continue
		}

		res := s.validator.ValidateField(ctx, rules.FieldFor(attr), value)
		switch {
		case res.Skipped:
			s.countWrite("skipped")
			continue
		case !res.OK:
			s.countWrite("rejected")
			result.Messages = append(result.Messages, res.Messages...)
			r.emit(Event{Type: EventAttributeRejected, SheetID: member.SheetID, MemberID: memberID, Attribute: name, Value: value, Messages: res.Messages})
			continue
		}

		if err := r.upsertValue(ctx, memberID, name, res.Value); err != nil {
			s.countWrite("error")
			return nil, err
		}
		s.countWrite("saved")
		saved++
		r.emit(Event{Type: EventAttributeSaved, SheetID: member.SheetID, MemberID: memberID, Attribute: name, Value: res.Value})
	}

	if saved > 0 {
		_, err := s.builder().
			From(s.tables.Member).
			Set("modified", s.timestamp()).
			Set("modifier", r.actor).
			Where("id", memberID).
			Update(ctx)
		if err != nil {
			return nil, err
		}
	}

	if !result.OK() {
		s.logger.Info("Attribute values rejected", zap.Int64("member_id", memberID), zap.Strings("messages", result.Messages))
		return result, nil
	}
	result.Record, err = s.LoadRecord(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// upsertValue overwrites the value row of (member, attribute), inserting it
// when it does not exist yet.
func (r *Request) upsertValue(ctx context.Context, memberID int64, attribute string, value any) error {
	s := r.store
	var stored any
	if value != nil {
		stored = query.ToString(value)
	}
	modified := s.timestamp()

	n, err := s.builder().
		From(s.tables.EVA).
		Set("value", stored).
		Set("modified", modified).
		Set("modifier", r.actor).
		Where("member_id", memberID).
		Where("attribute", attribute).
		Update(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.builder().
		From(s.tables.EVA).
		Set("member_id", memberID).
		Set("attribute", attribute).
		Set("value", stored).
		Set("modified", modified).
		Set("modifier", r.actor).
		Insert(ctx)
	return err
}

func (s *Store) countWrite(result string) {
	if s.metrics != nil {
		s.metrics.Writes.WithLabelValues(result).Inc()
	}
}
