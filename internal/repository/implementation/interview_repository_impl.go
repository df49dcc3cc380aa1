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

type InterviewRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InterviewMapper
}

func NewInterviewRepository(db *gorm.DB) contract.InterviewRepository {
	return &InterviewRepositoryImpl{
		db:     db,
		mapper: mapper.NewInterviewMapper(),
	}
}

func (r *InterviewRepositoryImpl) Create(ctx context.Context, interview *entity.Interview) error {
	m := r.mapper.ToModel(interview)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*interview = *r.mapper.ToEntity(m)
	return nil
}

func (r *InterviewRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Interview, error) {
	var m model.Interview
	if err := (specification.ByID{ID: id}).Apply(r.db.WithContext(ctx)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *InterviewRepositoryImpl) FindBySessionID(ctx context.Context, sessionID uuid.UUID) ([]*entity.Interview, error) {
	var models []*model.Interview
	query := specification.Apply(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionID},
		specification.OrderBy{Field: "created_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *InterviewRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.InterviewStatus, upd entity.InterviewUpdate) (bool, error) {
	columns := map[string]interface{}{
		"status":         string(upd.Status),
		"failure_reason": string(upd.FailureReason),
		"error_detail":   upd.ErrorDetail,
	}
	if upd.Transcript != nil {
		columns["transcript"] = *upd.Transcript
	}
	if upd.AudioRef != nil {
		columns["audio_ref"] = *upd.AudioRef
	}
	if upd.QualityScores != nil {
		columns["quality_scores"] = mapper.ScoresJSON(upd.QualityScores)
	}
	switch upd.Status {
	case entity.InterviewStatusInProgress:
		columns["started_at"] = upd.At
	case entity.InterviewStatusCompleted:
		columns["completed_at"] = upd.At
	}

	query := specification.Apply(r.db.WithContext(ctx).Model(&model.Interview{}),
		specification.ByID{ID: id},
		specification.Statuses(from),
	)
	res := query.Updates(columns)
	return res.RowsAffected == 1, res.Error
}

func (r *InterviewRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Interview{}).Error
}
