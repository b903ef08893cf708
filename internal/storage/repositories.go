package storage

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-market-gate/internal/model"
)

// NewTagRepository builds the generic tag repository.
func NewTagRepository(db *bun.DB) repository.Repository[*model.Tag] {
	return repository.NewRepository[*model.Tag](db, repository.ModelHandlers[*model.Tag]{
		NewRecord: func() *model.Tag {
			return &model.Tag{}
		},
		GetID: func(t *model.Tag) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *model.Tag, id uuid.UUID) {
			t.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})
}

// NewShopRepository builds the generic shop repository.
func NewShopRepository(db *bun.DB) repository.Repository[*model.Shop] {
	return repository.NewRepository[*model.Shop](db, repository.ModelHandlers[*model.Shop]{
		NewRecord: func() *model.Shop {
			return &model.Shop{}
		},
		GetID: func(s *model.Shop) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *model.Shop, id uuid.UUID) {
			s.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})
}

func orderBy(expr string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr(expr)
	}
}

func paginate(page, perPage int) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Limit(perPage).Offset((page - 1) * perPage)
	}
}
