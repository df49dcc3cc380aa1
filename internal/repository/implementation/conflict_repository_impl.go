package implementation

import (
	"context"
	"errors"

	"lifestory-be/internal/entity"
	"lifestory-be/internal/mapper"
	"lifestory-be/internal/model"
	"lifestory-be/internal/repository/contract"
	"lifestory-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConflictRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConflictMapper
}

func NewConflictRepository(db *gorm.DB) contract.ConflictRepository {
	return &ConflictRepositoryImpl{
		db:     db,
		mapper: mapper.NewConflictMapper(),
	}
}

func (r *ConflictRepositoryImpl) CreateBulk(ctx context.Context, conflicts []*entity.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	models := make([]*model.Conflict, len(conflicts))
	for i, c := range conflicts {
		models[i] = r.mapper.ToModel(c)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*conflicts[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ConflictRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Conflict, error) {
	var m model.Conflict
	if err := (specification.ByID{ID: id}).Apply(r.db.WithContext(ctx)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ConflictRepositoryImpl) FindByDraftID(ctx context.Context, draftID uuid.UUID) ([]*entity.Conflict, error) {
	var models []*model.Conflict
	query := specification.Apply(r.db.WithContext(ctx),
		specification.ByDraftID{DraftID: draftID},
		specification.OrderBy{Field: "created_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ConflictRepositoryImpl) Resolve(ctx context.Context, c *entity.Conflict) (bool, error) {
	m := r.mapper.ToModel(c)
	res := r.db.WithContext(ctx).Model(&model.Conflict{}).
		Where("id = ? AND status = ?", c.Id, string(entity.ConflictStatusOpen)).
		Updates(map[string]interface{}{
			"status":      string(entity.ConflictStatusResolved),
			"resolution":  m.Resolution,
			"merged_text": m.MergedText,
			"resolved_by": m.ResolvedBy,
			"resolved_at": m.ResolvedAt,
		})
	return res.RowsAffected == 1, res.Error
}
