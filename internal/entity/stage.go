package entity

// Stage is one phase of the external AI pipeline.
type Stage string

const (
	StageTranscription Stage = "transcription"
	StageDraft         Stage = "draft"
	StageLifeStory     Stage = "life-story"
)

func (s Stage) Valid() bool {
	switch s {
	case StageTranscription, StageDraft, StageLifeStory:
		return true
	}
	return false
}

// SessionScoped reports whether jobs for this stage are keyed by session id
// rather than interview id.
func (s Stage) SessionScoped() bool {
	return s == StageLifeStory
}
