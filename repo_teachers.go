package yoga

import (
	"context"
	"database/sql"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type Teachers interface {
	List(ctx context.Context) ([]*Teacher, error)
	GetByID(ctx context.Context, id int64) (*Teacher, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Teacher, error)
	Create(ctx context.Context, record *Teacher) (*Teacher, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Teacher) (*Teacher, error)
}

type teachers struct {
	db *bun.DB
}

var _ Teachers = (*teachers)(nil)

func NewTeachersRepository(db *bun.DB) Teachers {
	return &teachers{db: db}
}

func (a *teachers) List(ctx context.Context) ([]*Teacher, error) {
	records := make([]*Teacher, 0)
	if err := a.db.NewSelect().
		Model(&records).
		Order("tch.id ASC").
		Scan(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list teachers")
	}
	return records, nil
}

func (a *teachers) GetByID(ctx context.Context, id int64) (*Teacher, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *teachers) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Teacher, error) {
	record := new(Teacher)
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, withMetadata(ErrTeacherNotFound, map[string]any{"teacher_id": id})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to get teacher")
	}
	return record, nil
}

func (a *teachers) Create(ctx context.Context, record *Teacher) (*Teacher, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *teachers) CreateTx(ctx context.Context, tx bun.IDB, record *Teacher) (*Teacher, error) {
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create teacher")
	}
	return record, nil
}
