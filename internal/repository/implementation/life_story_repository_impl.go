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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LifeStoryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LifeStoryMapper
}

func NewLifeStoryRepository(db *gorm.DB) contract.LifeStoryRepository {
	return &LifeStoryRepositoryImpl{
		db:     db,
		mapper: mapper.NewLifeStoryMapper(),
	}
}

func (r *LifeStoryRepositoryImpl) Create(ctx context.Context, story *entity.FullLifeStory) error {
	m := r.mapper.ToModel(story)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*story = *r.mapper.ToEntity(m)
	return nil
}

func (r *LifeStoryRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.FullLifeStory, error) {
	var m model.FullLifeStory
	if err := specification.Apply(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *LifeStoryRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.FullLifeStory, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *LifeStoryRepositoryImpl) FindLatest(ctx context.Context, sessionID uuid.UUID) (*entity.FullLifeStory, error) {
	return r.findOne(ctx, specification.BySessionID{SessionID: sessionID}, specification.VersionDesc)
}

func (r *LifeStoryRepositoryImpl) FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.FullLifeStory, error) {
	var models []*model.FullLifeStory
	query := specification.Apply(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionID},
		specification.VersionAsc,
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *LifeStoryRepositoryImpl) CompleteGeneration(ctx context.Context, id uuid.UUID, content []byte) error {
	return r.db.WithContext(ctx).Model(&model.FullLifeStory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":           datatypes.JSON(content),
			"generation_status": string(entity.GenerationStatusReady),
			"generation_error":  "",
		}).Error
}

func (r *LifeStoryRepositoryImpl) SetGeneration(ctx context.Context, id uuid.UUID, status entity.GenerationStatus, detail string) error {
	return r.db.WithContext(ctx).Model(&model.FullLifeStory{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"generation_status": string(status),
			"generation_error":  detail,
		}).Error
}

func (r *LifeStoryRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.LifeStoryStatus, to entity.LifeStoryStatus) (bool, error) {
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.FullLifeStory{}),
		specification.ByID{ID: id},
		specification.Statuses(from),
	)
	res := query.Update("status", string(to))
	return res.RowsAffected == 1, res.Error
}
