package service

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/pkg/storage"
	"lifestory-be/internal/repository/contract"
	"lifestory-be/internal/repository/memory"
	"lifestory-be/internal/repository/unitofwork"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/events"
	"lifestory-be/pkg/pipeline"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// fakePipeline answers every call with success unless a stage hook is set.
type fakePipeline struct {
	mu         sync.Mutex
	calls      []entity.Stage
	transcribe func(ctx context.Context, req pipeline.TranscribeRequest) (*pipeline.Result, error)
	draft      func(ctx context.Context, req pipeline.DraftRequest) (*pipeline.Result, error)
	story      func(ctx context.Context, req pipeline.StoryRequest) (*pipeline.Result, error)
}

func (p *fakePipeline) record(stage entity.Stage) {
	p.mu.Lock()
	p.calls = append(p.calls, stage)
	p.mu.Unlock()
}

func (p *fakePipeline) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakePipeline) Transcribe(ctx context.Context, req pipeline.TranscribeRequest) (*pipeline.Result, error) {
	p.record(entity.StageTranscription)
	if p.transcribe != nil {
		return p.transcribe(ctx, req)
	}
	return &pipeline.Result{Transcription: "I was born in a small town."}, nil
}

func (p *fakePipeline) StructureDraft(ctx context.Context, req pipeline.DraftRequest) (*pipeline.Result, error) {
	p.record(entity.StageDraft)
	if p.draft != nil {
		return p.draft(ctx, req)
	}
	return &pipeline.Result{Content: []byte(`{"chapters":[]}`)}, nil
}

func (p *fakePipeline) SynthesizeStory(ctx context.Context, req pipeline.StoryRequest) (*pipeline.Result, error) {
	p.record(entity.StageLifeStory)
	if p.story != nil {
		return p.story(ctx, req)
	}
	return &pipeline.Result{Content: []byte(`{"story":"Once upon a time"}`)}, nil
}

// recordingHub stands in for the realtime hub.
type recordingHub struct {
	mu     sync.Mutex
	events []dto.RealtimeEvent
}

func (h *recordingHub) PublishEvent(_ context.Context, event dto.RealtimeEvent) {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
}

func (h *recordingHub) InRoom(room string, eventType string) []dto.RealtimeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []dto.RealtimeEvent
	for _, e := range h.events {
		if e.Room == room && (eventType == "" || e.Type == eventType) {
			out = append(out, e)
		}
	}
	return out
}

// queue captures dispatch messages instead of running them.
type queue struct {
	mu   sync.Mutex
	msgs []dto.DispatchMessage
	err  error
}

func (q *queue) SendDispatch(_ context.Context, msg dto.DispatchMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *queue) Last() dto.DispatchMessage {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.msgs[len(q.msgs)-1]
}

type harness struct {
	store  *memory.Store
	clock  *fakeClock
	corr   *correlator.Correlator
	pipe   *fakePipeline
	hub    *recordingHub
	events *events.Recorder
	queue  *queue

	lifecycle  ILifecycleService
	runner     *StageRunner
	ingest     IIngestService
	reconciler IReconcilerService
	sessions   ISessionService
	interviews IInterviewService
	drafts     IDraftService
	stories    ILifeStoryService

	owner dto.Actor
	admin dto.Actor
}

type harnessOptions struct {
	jobTimeout time.Duration
	maxBytes   int64
	// wrap lets a test put a faulty repository layer in front of the store.
	wrap func(*memory.Store) unitofwork.RepositoryFactory
}

func newHarness(t *testing.T, opts ...func(*harnessOptions)) *harness {
	t.Helper()

	o := harnessOptions{jobTimeout: 5 * time.Minute, maxBytes: 1 << 20}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.NewNopLogger()
	h := &harness{
		store:  memory.NewStore(),
		clock:  &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		pipe:   &fakePipeline{},
		hub:    &recordingHub{},
		events: &events.Recorder{},
		queue:  &queue{},
		owner:  dto.Actor{UserId: uuid.New()},
		admin:  dto.Actor{UserId: uuid.New(), IsAdmin: true},
	}

	var factory unitofwork.RepositoryFactory = h.store
	if o.wrap != nil {
		factory = o.wrap(h.store)
	}

	h.corr = correlator.New(correlator.NewMemoryStore(), correlator.WithTimeout(o.jobTimeout), correlator.WithClock(h.clock.Now))
	h.lifecycle = NewLifecycleService(factory, h.hub, h.events, log)
	h.corr.OnExpire(h.lifecycle.Expired)

	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	h.runner = NewStageRunner(h.corr, h.pipe, h.queue, h.lifecycle, "http://api.test/api/webhooks", log)
	h.ingest = NewIngestService(factory, h.corr, h.runner, files, IngestLimits{
		MaxBytes:     o.maxBytes,
		AllowedTypes: []string{"audio/wav", "audio/mpeg", "text/plain", "application/pdf"},
	}, log)
	h.reconciler = NewReconcilerService(factory, h.corr, h.lifecycle, log)
	h.sessions = NewSessionService(factory, h.hub, h.events, log)
	h.interviews = NewInterviewService(factory, h.corr, h.lifecycle, h.hub, log)
	h.drafts = NewDraftService(factory, h.corr, h.runner, h.hub, h.events, log)
	h.stories = NewLifeStoryService(factory, h.corr, h.runner, h.hub, h.events, log)
	return h
}

func withJobTimeout(d time.Duration) func(*harnessOptions) {
	return func(o *harnessOptions) { o.jobTimeout = d }
}

func withMaxBytes(n int64) func(*harnessOptions) {
	return func(o *harnessOptions) { o.maxBytes = n }
}

var errStoreDown = errors.New("store unavailable")

// flakyStore fails interview status writes while failing is set.
type flakyStore struct {
	*memory.Store
	mu      sync.Mutex
	failing bool
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *flakyStore) isFailing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing
}

func (f *flakyStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return flakyUnitOfWork{UnitOfWork: f.Store.NewUnitOfWork(ctx), store: f}
}

type flakyUnitOfWork struct {
	unitofwork.UnitOfWork
	store *flakyStore
}

func (u flakyUnitOfWork) InterviewRepository() contract.InterviewRepository {
	return flakyInterviews{InterviewRepository: u.UnitOfWork.InterviewRepository(), store: u.store}
}

type flakyInterviews struct {
	contract.InterviewRepository
	store *flakyStore
}

func (r flakyInterviews) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.InterviewStatus, upd entity.InterviewUpdate) (bool, error) {
	if r.store.isFailing() {
		return false, errStoreDown
	}
	return r.InterviewRepository.TransitionStatus(ctx, id, from, upd)
}

func withFlakyStore(out **flakyStore) func(*harnessOptions) {
	return func(o *harnessOptions) {
		o.wrap = func(s *memory.Store) unitofwork.RepositoryFactory {
			*out = &flakyStore{Store: s}
			return *out
		}
	}
}

// seed stores a session owned by h.owner with one interview in status.
func (h *harness) seed(t *testing.T, status entity.InterviewStatus) (*entity.Session, *entity.Interview) {
	t.Helper()
	ctx := context.Background()
	uow := h.store.NewUnitOfWork(ctx)

	session := &entity.Session{UserId: h.owner.UserId, Title: "Grandma's story"}
	require.NoError(t, uow.SessionRepository().Create(ctx, session))

	iv := &entity.Interview{SessionId: session.Id, Type: entity.InterviewTypeMain, Status: status}
	require.NoError(t, uow.InterviewRepository().Create(ctx, iv))
	return session, iv
}

func (h *harness) interview(t *testing.T, id uuid.UUID) *entity.Interview {
	t.Helper()
	iv, err := h.store.NewUnitOfWork(context.Background()).InterviewRepository().FindByID(context.Background(), id)
	require.NoError(t, err)
	return iv
}

func (h *harness) session(t *testing.T, id uuid.UUID) *entity.Session {
	t.Helper()
	s, err := h.store.NewUnitOfWork(context.Background()).SessionRepository().FindByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (h *harness) draftsOf(t *testing.T, interviewID uuid.UUID) []*entity.Draft {
	t.Helper()
	drafts, err := h.store.NewUnitOfWork(context.Background()).DraftRepository().FindByInterviewID(context.Background(), interviewID)
	require.NoError(t, err)
	return drafts
}

func transcriptionKey(interviewID uuid.UUID) correlator.Key {
	return correlator.Key{SubjectID: interviewID, Stage: string(entity.StageTranscription)}
}

func (h *harness) active(t *testing.T, subject uuid.UUID, stage entity.Stage) bool {
	t.Helper()
	ok, err := h.corr.IsActive(context.Background(), correlator.Key{SubjectID: subject, Stage: string(stage)})
	require.NoError(t, err)
	return ok
}

// completed drives a fresh interview through a synchronous upload.
func (h *harness) completed(t *testing.T) (*entity.Session, *entity.Interview) {
	t.Helper()
	session, iv := h.seed(t, entity.InterviewStatusInProgress)
	_, err := h.ingest.UploadSync(context.Background(), h.owner, upload(iv.Id, dto.UploadModeSync))
	require.NoError(t, err)
	return session, h.interview(t, iv.Id)
}

// approve walks a draft through every review gate.
func (h *harness) approve(t *testing.T, draftID uuid.UUID) {
	t.Helper()
	for _, status := range []entity.DraftStatus{
		entity.DraftStatusClientReview,
		entity.DraftStatusFinalApproval,
		entity.DraftStatusApproved,
	} {
		_, err := h.drafts.Transition(context.Background(), h.admin, draftID, &dto.TransitionRequest{Status: string(status)})
		require.NoError(t, err)
	}
}

func wavBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+8))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8000))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16000))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(8))
	buf.Write(make([]byte, 8))
	return buf.Bytes()
}

func upload(interviewID uuid.UUID, mode dto.UploadMode) *dto.UploadRequest {
	data := wavBytes()
	return &dto.UploadRequest{
		InterviewId: interviewID,
		Filename:    "memories.wav",
		Size:        int64(len(data)),
		Data:        data,
		Mode:        mode,
	}
}

func boolPtr(b bool) *bool { return &b }

func transcriptionCallback(interviewID uuid.UUID, success bool, token string) *dto.TranscriptionCallback {
	cb := &dto.TranscriptionCallback{InterviewId: interviewID}
	cb.Success = boolPtr(success)
	if success {
		cb.Transcription = "I was born in a small town."
	} else {
		cb.Error = "model_unavailable"
	}
	if token != "" {
		cb.Metadata = &dto.CallbackMetadata{JobToken: token}
	}
	return cb
}
