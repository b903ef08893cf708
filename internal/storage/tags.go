package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-market-gate/cache"
	"github.com/goliatone/go-market-gate/internal/model"
	"github.com/goliatone/go-market-gate/repositorycache"
)

// Paging defaults for tag listings.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// TagUpdate carries the fields an update may change. Nil fields are kept.
type TagUpdate struct {
	Name    *string    `json:"name,omitempty"`
	Slug    *string    `json:"slug,omitempty"`
	Details *string    `json:"details,omitempty"`
	ShopID  *uuid.UUID `json:"shop_id,omitempty"`
}

// TagService serves tags through the cached repository. Bulk operations run
// directly against the table and then invalidate the cached reads.
type TagService struct {
	db     *bun.DB
	repo   *repositorycache.CachedRepository[*model.Tag]
	logger *slog.Logger
}

// NewTagService builds a TagService whose reads go through svc.
func NewTagService(db *bun.DB, svc cache.CacheService, keys cache.KeySerializer, logger *slog.Logger) *TagService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	repo := repositorycache.New[*model.Tag](NewTagRepository(db), svc, keys,
		repositorycache.WithScope("tag"),
		repositorycache.WithLogger(logger),
	)
	return &TagService{db: db, repo: repo, logger: logger}
}

// Invalidate drops every cached tag read.
func (s *TagService) Invalidate(ctx context.Context) {
	s.repo.Invalidate(ctx)
}

// List returns one page of live tags ordered by name, plus the total count.
func (s *TagService) List(ctx context.Context, page, perPage int) ([]*model.Tag, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	ctx = repositorycache.WithCacheTags(ctx,
		fmt.Sprintf("page=%d", page),
		fmt.Sprintf("per_page=%d", perPage),
		"order=name",
	)
	tags, total, err := s.repo.List(ctx, orderBy("name ASC"), paginate(page, perPage))
	if err != nil {
		return nil, 0, dbError(err, "list tags")
	}
	return tags, total, nil
}

// Get returns a live tag.
func (s *TagService) Get(ctx context.Context, id uuid.UUID) (*model.Tag, error) {
	tag, err := s.repo.GetByID(ctx, id.String())
	if err == nil && tag != nil {
		return tag, nil
	}

	// the generic repository does not classify missing rows for us
	exists, existsErr := s.db.NewSelect().Model((*model.Tag)(nil)).Where("id = ?", id).Exists(ctx)
	if existsErr == nil && !exists {
		return nil, notFound("tag")
	}
	if err == nil {
		err = existsErr
	}
	return nil, dbError(err, "get tag")
}

// Create inserts a tag.
func (s *TagService) Create(ctx context.Context, tag *model.Tag) (*model.Tag, error) {
	if tag.Slug == "" {
		tag.Slug = slugify(tag.Name)
	}
	if err := validateTag(tag); err != nil {
		return nil, err
	}
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	now := time.Now().UTC()
	tag.CreatedAt, tag.UpdatedAt = now, now

	created, err := s.repo.Create(ctx, tag)
	if err != nil {
		return nil, dbError(err, "create tag")
	}
	if created == nil {
		created = tag
	}
	return created, nil
}

// Update applies patch to a live tag.
func (s *TagService) Update(ctx context.Context, id uuid.UUID, patch TagUpdate) (*model.Tag, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// cached values are shared; never mutate them in place
	tag := *current

	if patch.Name != nil {
		tag.Name = *patch.Name
	}
	if patch.Slug != nil {
		tag.Slug = *patch.Slug
	}
	if patch.Details != nil {
		tag.Details = *patch.Details
	}
	if patch.ShopID != nil {
		shopID := *patch.ShopID
		tag.ShopID = &shopID
	}
	if err := validateTag(&tag); err != nil {
		return nil, err
	}
	tag.UpdatedAt = time.Now().UTC()

	// explicit columns so a patch can clear a field; the repository's
	// update skips zero values
	_, err = s.db.NewUpdate().
		Model(&tag).
		Column("name", "slug", "details", "shop_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, dbError(err, "update tag")
	}
	s.repo.Invalidate(ctx)
	return &tag, nil
}

// Destroy soft deletes the given tags and reports how many were removed.
func (s *TagService) Destroy(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, invalid("ids: cannot be blank")
	}
	res, err := s.db.NewDelete().
		Model(new(model.Tag)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return 0, dbError(err, "delete tags")
	}
	s.repo.Invalidate(ctx)
	n, _ := res.RowsAffected()
	return n, nil
}

// DropAll soft deletes every live tag.
func (s *TagService) DropAll(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().
		Model(new(model.Tag)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		return 0, dbError(err, "drop tags")
	}
	s.repo.Invalidate(ctx)
	n, _ := res.RowsAffected()
	return n, nil
}

// Truncate permanently removes every tag, deleted or not.
func (s *TagService) Truncate(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model(new(model.Tag)).
		WhereAllWithDeleted().
		Where("1 = 1").
		ForceDelete().
		Exec(ctx)
	if err != nil {
		return dbError(err, "truncate tags")
	}
	s.repo.Invalidate(ctx)
	return nil
}

// RestoreAll brings back every soft deleted tag.
func (s *TagService) RestoreAll(ctx context.Context) (int64, error) {
	res, err := s.db.NewUpdate().
		Model(new(model.Tag)).
		WhereAllWithDeleted().
		Set("deleted_at = NULL").
		Where("deleted_at IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return 0, dbError(err, "restore tags")
	}
	s.repo.Invalidate(ctx)
	n, _ := res.RowsAffected()
	return n, nil
}

func validateTag(tag *model.Tag) error {
	err := validation.ValidateStruct(tag,
		validation.Field(&tag.Name, validation.Required, validation.Length(1, 191)),
		validation.Field(&tag.Slug, validation.Required, validation.Length(1, 191)),
		validation.Field(&tag.Details, validation.Length(0, 10000)),
	)
	if err != nil {
		return invalid(err.Error())
	}
	return nil
}
