package controller

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/internal/pkg/serverutils"
	"lifestory-be/internal/pkg/storage"
	"lifestory-be/internal/repository/memory"
	"lifestory-be/internal/service"
	"lifestory-be/internal/websocket"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/events"
	"lifestory-be/pkg/pipeline"
	"lifestory-be/pkg/webhook"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jwtSecret     = "controller-secret"
	signingSecret = "whsec-test"
)

type stubPipeline struct{}

func (stubPipeline) Transcribe(context.Context, pipeline.TranscribeRequest) (*pipeline.Result, error) {
	return &pipeline.Result{Transcription: "We moved to the coast in 1962."}, nil
}

func (stubPipeline) StructureDraft(context.Context, pipeline.DraftRequest) (*pipeline.Result, error) {
	return &pipeline.Result{Content: []byte(`{"chapters":[]}`)}, nil
}

func (stubPipeline) SynthesizeStory(context.Context, pipeline.StoryRequest) (*pipeline.Result, error) {
	return &pipeline.Result{Content: []byte(`{"story":"The coast"}`)}, nil
}

type recordingQueue struct {
	mu   sync.Mutex
	msgs []dto.DispatchMessage
}

func (q *recordingQueue) SendDispatch(_ context.Context, msg dto.DispatchMessage) error {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()
	return nil
}

type testEnv struct {
	app   *fiber.App
	queue *recordingQueue
	owner uuid.UUID
	admin uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.NewNopLogger()
	store := memory.NewStore()
	corr := correlator.New(correlator.NewMemoryStore())
	hub := websocket.NewHub(websocket.HubOptions{}, log)
	queue := &recordingQueue{}

	lifecycle := service.NewLifecycleService(store, hub, events.Discard{}, log)
	corr.OnExpire(lifecycle.Expired)

	files, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	runner := service.NewStageRunner(corr, stubPipeline{}, queue, lifecycle, "http://api.test/api/webhooks", log)
	ingest := service.NewIngestService(store, corr, runner, files, service.IngestLimits{
		MaxBytes:     1 << 20,
		AllowedTypes: []string{"audio/wav", "text/plain"},
	}, log)
	sessions := service.NewSessionService(store, hub, events.Discard{}, log)
	interviews := service.NewInterviewService(store, corr, lifecycle, hub, log)
	drafts := service.NewDraftService(store, corr, runner, hub, events.Discard{}, log)
	stories := service.NewLifeStoryService(store, corr, runner, hub, events.Discard{}, log)
	reconciler := service.NewReconcilerService(store, corr, lifecycle, log)

	auth := serverutils.NewJwtMiddleware(jwtSecret)
	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler(log)})
	api := app.Group("/api")
	NewSessionController(sessions, auth).RegisterRoutes(api)
	NewInterviewController(interviews, ingest, drafts, auth).RegisterRoutes(api)
	NewDraftController(drafts, auth).RegisterRoutes(api)
	NewLifeStoryController(stories, auth).RegisterRoutes(api)
	NewWebhookController(reconciler, webhook.NewVerifier(signingSecret, "", time.Minute)).RegisterRoutes(api)

	return &testEnv{app: app, queue: queue, owner: uuid.New(), admin: uuid.New()}
}

func token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

func (e *testEnv) do(t *testing.T, req *http.Request, bearer string) *http.Response {
	t.Helper()
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body interface{}, bearer string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req, bearer)
}

func decodeAs[T any](t *testing.T, resp *http.Response) serverutils.BaseResponse[T] {
	t.Helper()
	defer resp.Body.Close()
	var out serverutils.BaseResponse[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
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

func multipartUpload(t *testing.T, path string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if data != nil {
		part, err := w.CreateFormFile("file", "memories.wav")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// startedInterview creates a session for the owner and starts its main interview.
func (e *testEnv) startedInterview(t *testing.T) (uuid.UUID, uuid.UUID) {
	t.Helper()
	tok := token(t, e.owner, serverutils.RoleUser)

	resp := e.doJSON(t, http.MethodPost, "/api/sessions", map[string]string{"title": "Grandpa"}, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeAs[dto.SessionResponse](t, resp).Data

	resp = e.doJSON(t, http.MethodPost, "/api/sessions/"+session.Id.String()+"/interviews", map[string]string{"type": "main"}, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	iv := decodeAs[dto.InterviewResponse](t, resp).Data

	resp = e.doJSON(t, http.MethodPost, "/api/interviews/"+iv.Id.String()+"/start", nil, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return session.Id, iv.Id
}

func (e *testEnv) signedCallback(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return e.deliver(t, path, raw, strconv.FormatInt(time.Now().Unix(), 10))
}

// deliver posts raw signed at ts. Calling it twice with the same arguments
// sends byte-identical requests.
func (e *testEnv) deliver(t *testing.T, path string, raw []byte, ts string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.HeaderTimestamp, ts)
	req.Header.Set(webhook.HeaderSignature, webhook.Sign(signingSecret, ts, raw))
	return e.do(t, req, "")
}

func TestSessionRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodPost, "/api/sessions", map[string]string{"title": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionCreate_ValidatesBody(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodPost, "/api/sessions", map[string]string{}, token(t, env.owner, serverutils.RoleUser))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionShow_InvalidID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodGet, "/api/sessions/not-a-uuid", nil, token(t, env.owner, serverutils.RoleUser))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionOverrideStatus_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	sessionID, _ := env.startedInterview(t)
	path := "/api/sessions/" + sessionID.String() + "/status"
	body := map[string]string{"status": "completed"}

	resp := env.doJSON(t, http.MethodPatch, path, body, token(t, env.owner, serverutils.RoleUser))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPatch, path, body, token(t, env.admin, serverutils.RoleAdmin))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decodeAs[dto.SessionResponse](t, resp).Data.Status)
}

func TestUpload_SyncCompletesInterview(t *testing.T) {
	env := newTestEnv(t)
	_, ivID := env.startedInterview(t)

	req := multipartUpload(t, "/api/interviews/"+ivID.String()+"/upload", wavBytes())
	resp := env.do(t, req, token(t, env.owner, serverutils.RoleUser))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decodeAs[dto.InterviewResponse](t, resp)
	assert.Equal(t, "completed", res.Data.Status)
	require.NotNil(t, res.Data.Transcript)
	assert.Equal(t, "We moved to the coast in 1962.", *res.Data.Transcript)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		code int
	}{
		{"missing file", nil, http.StatusBadRequest},
		{"unsupported type", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, ivID := env.startedInterview(t)

			req := multipartUpload(t, "/api/interviews/"+ivID.String()+"/upload", tt.data)
			resp := env.do(t, req, token(t, env.owner, serverutils.RoleUser))
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestUploadAsync_ThenSignedCallback(t *testing.T) {
	env := newTestEnv(t)
	_, ivID := env.startedInterview(t)
	tok := token(t, env.owner, serverutils.RoleUser)

	req := multipartUpload(t, "/api/interviews/"+ivID.String()+"/upload-async", wavBytes())
	resp := env.do(t, req, tok)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	ack := decodeAs[dto.JobAcknowledgement](t, resp)
	assert.Equal(t, http.StatusAccepted, ack.Code)
	assert.Equal(t, "transcription", ack.Data.Stage)
	require.NotEmpty(t, ack.Data.JobToken)
	require.Len(t, env.queue.msgs, 1)

	raw, err := json.Marshal(map[string]interface{}{
		"interviewId":   ivID,
		"success":       true,
		"transcription": "We moved to the coast in 1962.",
		"metadata":      map[string]interface{}{"jobToken": ack.Data.JobToken},
	})
	require.NoError(t, err)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	path := "/api/webhooks/transcription-complete"

	resp = env.deliver(t, path, raw, ts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dto.OutcomeApplied, decodeAs[dto.WebhookResponse](t, resp).Data.Outcome)

	// The identical request again is acknowledged but changes nothing.
	resp = env.deliver(t, path, raw, ts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dto.OutcomeNoActiveJob, decodeAs[dto.WebhookResponse](t, resp).Data.Outcome)

	resp = env.doJSON(t, http.MethodGet, "/api/interviews/"+ivID.String()+"/status", nil, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", decodeAs[dto.InterviewStatusResponse](t, resp).Data.Status)
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)

	raw := []byte(`{"interviewId":"` + uuid.NewString() + `","success":true}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/transcription-complete", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.HeaderTimestamp, ts)
	req.Header.Set(webhook.HeaderSignature, webhook.Sign("wrong-secret", ts, raw))

	resp := env.do(t, req, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized_webhook", decodeAs[any](t, resp).Kind)
}

func TestWebhook_UnknownSubjectAcknowledged(t *testing.T) {
	env := newTestEnv(t)

	resp := env.signedCallback(t, "/api/webhooks/life-story-complete", map[string]interface{}{
		"sessionId": uuid.New(),
		"success":   true,
		"story":     map[string]string{"title": "x"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dto.OutcomeUnknownSubject, decodeAs[dto.WebhookResponse](t, resp).Data.Outcome)
}

func TestWebhook_MissingSuccessIsInvalid(t *testing.T) {
	env := newTestEnv(t)

	resp := env.signedCallback(t, "/api/webhooks/draft-complete", map[string]interface{}{
		"interviewId": uuid.New(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegenerateDraft_AdminOnlyAndAsync(t *testing.T) {
	env := newTestEnv(t)
	_, ivID := env.startedInterview(t)

	req := multipartUpload(t, "/api/interviews/"+ivID.String()+"/upload", wavBytes())
	require.Equal(t, http.StatusOK, env.do(t, req, token(t, env.owner, serverutils.RoleUser)).StatusCode)

	path := "/api/interviews/" + ivID.String() + "/drafts/regenerate"
	resp := env.doJSON(t, http.MethodPost, path, nil, token(t, env.owner, serverutils.RoleUser))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPost, path, nil, token(t, env.admin, serverutils.RoleAdmin))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "draft", decodeAs[dto.JobAcknowledgement](t, resp).Data.Stage)

	// A second request while the first is in flight is refused.
	resp = env.doJSON(t, http.MethodPost, path+"?mode=sync", nil, token(t, env.admin, serverutils.RoleAdmin))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLifeStory_RequiresApprovedDraft(t *testing.T) {
	env := newTestEnv(t)
	sessionID, ivID := env.startedInterview(t)

	req := multipartUpload(t, "/api/interviews/"+ivID.String()+"/upload", wavBytes())
	require.Equal(t, http.StatusOK, env.do(t, req, token(t, env.owner, serverutils.RoleUser)).StatusCode)

	resp := env.doJSON(t, http.MethodPost, "/api/sessions/"+sessionID.String()+"/life-story", nil, token(t, env.admin, serverutils.RoleAdmin))
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
}
