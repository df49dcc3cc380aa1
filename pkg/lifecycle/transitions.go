package lifecycle

import (
	"fmt"

	"lifestory-be/internal/entity"
)

// ErrInvalidTransition is returned when a requested move is not in the table.
type ErrInvalidTransition struct {
	Entity string
	From   string
	To     string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.From, e.To)
}

var interviewTransitions = map[entity.InterviewStatus][]entity.InterviewStatus{
	entity.InterviewStatusScheduled:  {entity.InterviewStatusInProgress},
	entity.InterviewStatusInProgress: {entity.InterviewStatusProcessing},
	entity.InterviewStatusProcessing: {entity.InterviewStatusCompleted, entity.InterviewStatusFailed},
	entity.InterviewStatusFailed:     {entity.InterviewStatusProcessing},
	entity.InterviewStatusCompleted:  {},
}

var draftTransitions = map[entity.DraftStatus][]entity.DraftStatus{
	entity.DraftStatusInternalReview: {entity.DraftStatusClientReview, entity.DraftStatusRejected},
	entity.DraftStatusClientReview:   {entity.DraftStatusFinalApproval, entity.DraftStatusRejected},
	entity.DraftStatusFinalApproval:  {entity.DraftStatusApproved, entity.DraftStatusRejected},
	entity.DraftStatusApproved:       {entity.DraftStatusRejected, entity.DraftStatusArchived},
	entity.DraftStatusRejected:       {entity.DraftStatusArchived},
	entity.DraftStatusArchived:       {},
}

var lifeStoryTransitions = map[entity.LifeStoryStatus][]entity.LifeStoryStatus{
	entity.LifeStoryStatusDraft:    {entity.LifeStoryStatusApproved, entity.LifeStoryStatusRejected},
	entity.LifeStoryStatusApproved: {entity.LifeStoryStatusRejected, entity.LifeStoryStatusArchived},
	entity.LifeStoryStatusRejected: {entity.LifeStoryStatusArchived},
	entity.LifeStoryStatusArchived: {},
}

// sessionRank orders session statuses; automatic advancement only moves up.
var sessionRank = map[entity.SessionStatus]int{
	entity.SessionStatusPending:   0,
	entity.SessionStatusActive:    1,
	entity.SessionStatusCompleted: 2,
	entity.SessionStatusInReview:  3,
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func CanMoveInterview(from, to entity.InterviewStatus) bool {
	return contains(interviewTransitions[from], to)
}

func CanMoveDraft(from, to entity.DraftStatus) bool {
	return contains(draftTransitions[from], to)
}

func CanMoveLifeStory(from, to entity.LifeStoryStatus) bool {
	return contains(lifeStoryTransitions[from], to)
}

func CheckInterview(from, to entity.InterviewStatus) error {
	if !CanMoveInterview(from, to) {
		return &ErrInvalidTransition{Entity: "interview", From: string(from), To: string(to)}
	}
	return nil
}

func CheckDraft(from, to entity.DraftStatus) error {
	if !CanMoveDraft(from, to) {
		return &ErrInvalidTransition{Entity: "draft", From: string(from), To: string(to)}
	}
	return nil
}

func CheckLifeStory(from, to entity.LifeStoryStatus) error {
	if !CanMoveLifeStory(from, to) {
		return &ErrInvalidTransition{Entity: "life story", From: string(from), To: string(to)}
	}
	return nil
}

// InterviewSourcesFor lists the statuses an interview may be in for a move to
// target to be legal. Repositories use it as the guard of a conditional write.
func InterviewSourcesFor(target entity.InterviewStatus) []entity.InterviewStatus {
	var sources []entity.InterviewStatus
	for from, targets := range interviewTransitions {
		if contains(targets, target) {
			sources = append(sources, from)
		}
	}
	return sources
}

func DraftSourcesFor(target entity.DraftStatus) []entity.DraftStatus {
	var sources []entity.DraftStatus
	for from, targets := range draftTransitions {
		if contains(targets, target) {
			sources = append(sources, from)
		}
	}
	return sources
}

func LifeStorySourcesFor(target entity.LifeStoryStatus) []entity.LifeStoryStatus {
	var sources []entity.LifeStoryStatus
	for from, targets := range lifeStoryTransitions {
		if contains(targets, target) {
			sources = append(sources, from)
		}
	}
	return sources
}

// ValidSessionStatus reports whether s is a known session status.
func ValidSessionStatus(s entity.SessionStatus) bool {
	_, ok := sessionRank[s]
	return ok
}

func ValidDraftStatus(s entity.DraftStatus) bool {
	_, ok := draftTransitions[s]
	return ok
}

func ValidLifeStoryStatus(s entity.LifeStoryStatus) bool {
	_, ok := lifeStoryTransitions[s]
	return ok
}

// IsForward reports whether moving a session from -> to never goes backward.
func IsForward(from, to entity.SessionStatus) bool {
	return sessionRank[to] > sessionRank[from]
}

// DeriveSessionStatus computes the status a session should have given its
// interviews and whether any life story exists. The result is only applied
// when it is forward of the current status.
func DeriveSessionStatus(current entity.SessionStatus, interviews []*entity.Interview, hasLifeStory bool) entity.SessionStatus {
	target := entity.SessionStatusPending

	started := false
	allCompleted := len(interviews) > 0
	for _, iv := range interviews {
		if iv.Status != entity.InterviewStatusScheduled {
			started = true
		}
		if iv.Status != entity.InterviewStatusCompleted {
			allCompleted = false
		}
	}

	switch {
	case hasLifeStory:
		target = entity.SessionStatusInReview
	case allCompleted:
		target = entity.SessionStatusCompleted
	case started:
		target = entity.SessionStatusActive
	}

	if IsForward(current, target) {
		return target
	}
	return current
}
