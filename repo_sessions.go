package yoga

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type Sessions interface {
	List(ctx context.Context) ([]*Session, error)
	GetByID(ctx context.Context, id int64) (*Session, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Session, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Session) (*Session, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Session) (*Session, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id int64) error
	// SaveParticipantsTx persists a participant change of the aggregate:
	// entries of record.Participants without an id are inserted and the
	// removed rows are deleted by id. Rows written by other transactions
	// are never touched.
	SaveParticipantsTx(ctx context.Context, tx bun.IDB, record *Session, removed ...*Participation) error
	Count(ctx context.Context) (int, error)
}

type sessions struct {
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	return &sessions{db: db}
}

func orderedParticipants(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("prt.id ASC")
}

func (a *sessions) List(ctx context.Context) ([]*Session, error) {
	records := make([]*Session, 0)
	if err := a.db.NewSelect().
		Model(&records).
		Relation("Participants", orderedParticipants).
		Order("ses.id ASC").
		Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list sessions")
	}
	return records, nil
}

func (a *sessions) GetByID(ctx context.Context, id int64) (*Session, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *sessions) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Session, error) {
	record := new(Session)
	err := tx.NewSelect().
		Model(record).
		Relation("Participants", orderedParticipants).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, withMetadata(ErrSessionNotFound, map[string]any{"session_id": id})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to get session")
	}
	if record.Participants == nil {
		record.Participants = make([]*Participation, 0)
	}
	return record, nil
}

func (a *sessions) CreateTx(ctx context.Context, tx bun.IDB, record *Session) (*Session, error) {
	record.ID = 0
	record.Participants = make([]*Participation, 0)

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create session")
	}
	return record, nil
}

// UpdateTx writes the editable columns. The participant set is never
// touched here.
func (a *sessions) UpdateTx(ctx context.Context, tx bun.IDB, record *Session) (*Session, error) {
	res, err := tx.NewUpdate().
		Model(record).
		Column("name", "date", "description", "teacher_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update session")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, withMetadata(ErrSessionNotFound, map[string]any{"session_id": record.ID})
	}

	return a.GetByIDTx(ctx, tx, record.ID)
}

func (a *sessions) DeleteTx(ctx context.Context, tx bun.IDB, id int64) error {
	if _, err := tx.NewDelete().
		Model((*Participation)(nil)).
		Where("session_id = ?", id).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete session participations")
	}

	res, err := tx.NewDelete().
		Model((*Session)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete session")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return withMetadata(ErrSessionNotFound, map[string]any{"session_id": id})
	}

	return nil
}

func (a *sessions) SaveParticipantsTx(ctx context.Context, tx bun.IDB, record *Session, removed ...*Participation) error {
	added := make([]*Participation, 0)
	for _, p := range record.Participants {
		if p != nil && p.ID == 0 {
			p.SessionID = record.ID
			added = append(added, p)
		}
	}

	for _, p := range removed {
		if p == nil {
			continue
		}

		res, err := tx.NewDelete().
			Model((*Participation)(nil)).
			Where("id = ?", p.ID).
			Where("session_id = ?", record.ID).
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove participant")
		}

		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return withMetadata(ErrNotParticipating, map[string]any{
				"session_id": record.ID,
				"user_id":    p.UserID,
			})
		}
	}

	for _, p := range added {
		if _, err := tx.NewInsert().Model(p).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return withMetadata(ErrAlreadyParticipating, map[string]any{
					"session_id": record.ID,
					"user_id":    p.UserID,
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to add participant")
		}
	}

	record.UpdatedAt = timeNow()
	if _, err := tx.NewUpdate().
		Table("sessions").
		Set("updated_at = ?", record.UpdatedAt).
		Where("id = ?", record.ID).
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to touch session")
	}

	return nil
}

func (a *sessions) Count(ctx context.Context) (int, error) {
	n, err := a.db.NewSelect().Model((*Session)(nil)).Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count sessions")
	}
	return n, nil
}
