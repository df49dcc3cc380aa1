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

type DraftRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DraftMapper
}

func NewDraftRepository(db *gorm.DB) contract.DraftRepository {
	return &DraftRepositoryImpl{
		db:     db,
		mapper: mapper.NewDraftMapper(),
	}
}

func (r *DraftRepositoryImpl) Create(ctx context.Context, draft *entity.Draft) error {
	m := r.mapper.ToModel(draft)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*draft = *r.mapper.ToEntity(m)
	return nil
}

func (r *DraftRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Draft, error) {
	var m model.Draft
	if err := specification.Apply(r.db.WithContext(ctx), specs...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DraftRepositoryImpl) findAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Draft, error) {
	var models []*model.Draft
	if err := specification.Apply(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DraftRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Draft, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *DraftRepositoryImpl) FindByInterviewID(ctx context.Context, interviewID uuid.UUID) ([]*entity.Draft, error) {
	return r.findAll(ctx, specification.ByInterviewID{InterviewID: interviewID}, specification.VersionAsc)
}

func (r *DraftRepositoryImpl) FindLatest(ctx context.Context, interviewID uuid.UUID) (*entity.Draft, error) {
	return r.findOne(ctx, specification.ByInterviewID{InterviewID: interviewID}, specification.VersionDesc)
}

func (r *DraftRepositoryImpl) FindApprovedBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.Draft, error) {
	var models []*model.Draft
	query := specification.ApprovedDraftsOfSession{SessionID: sessionID}.Apply(r.db.WithContext(ctx).Model(&model.Draft{}))
	if err := query.Select("drafts.*").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DraftRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.DraftStatus, to entity.DraftStatus) (bool, error) {
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.Draft{}),
		specification.ByID{ID: id},
		specification.Statuses(from),
	)
	res := query.Update("status", string(to))
	return res.RowsAffected == 1, res.Error
}

func (r *DraftRepositoryImpl) SetGeneration(ctx context.Context, id uuid.UUID, status entity.GenerationStatus, detail string) error {
	return r.db.WithContext(ctx).Model(&model.Draft{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"generation_status": string(status),
			"generation_error":  detail,
		}).Error
}

type DraftNoteRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DraftMapper
}

func NewDraftNoteRepository(db *gorm.DB) contract.DraftNoteRepository {
	return &DraftNoteRepositoryImpl{
		db:     db,
		mapper: mapper.NewDraftMapper(),
	}
}

func (r *DraftNoteRepositoryImpl) Append(ctx context.Context, note *entity.DraftNote) error {
	m := r.mapper.NoteToModel(note)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*note = *r.mapper.NoteToEntity(m)
	return nil
}

func (r *DraftNoteRepositoryImpl) FindByDraftID(ctx context.Context, draftID uuid.UUID) ([]*entity.DraftNote, error) {
	var models []*model.DraftNote
	query := specification.Apply(r.db.WithContext(ctx),
		specification.ByDraftID{DraftID: draftID},
		specification.OrderBy{Field: "created_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	notes := make([]*entity.DraftNote, len(models))
	for i, m := range models {
		notes[i] = r.mapper.NoteToEntity(m)
	}
	return notes, nil
}
