package service

import (
	"context"
	"errors"
	"strings"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/apperror"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/pipeline"
)

// callPipeline routes msg to the pipeline operation of its stage. An empty
// CallbackURL asks for an inline answer.
func callPipeline(ctx context.Context, client pipeline.Client, msg dto.DispatchMessage) (*pipeline.Result, error) {
	switch msg.Stage {
	case entity.StageTranscription:
		return client.Transcribe(ctx, pipeline.TranscribeRequest{
			InterviewID: msg.SubjectId.String(),
			JobToken:    msg.JobToken,
			SourceRef:   msg.SourceRef,
			MimeType:    msg.MimeType,
			CallbackURL: msg.CallbackURL,
		})
	case entity.StageDraft:
		return client.StructureDraft(ctx, pipeline.DraftRequest{
			InterviewID: msg.SubjectId.String(),
			JobToken:    msg.JobToken,
			Transcript:  msg.Transcript,
			CallbackURL: msg.CallbackURL,
		})
	case entity.StageLifeStory:
		return client.SynthesizeStory(ctx, pipeline.StoryRequest{
			SessionID:   msg.SubjectId.String(),
			JobToken:    msg.JobToken,
			Drafts:      msg.Drafts,
			CallbackURL: msg.CallbackURL,
		})
	}
	return nil, &pipeline.Error{Op: string(msg.Stage), Reason: "unknown stage"}
}

func stageResultOf(res *pipeline.Result) dto.StageResult {
	out := dto.StageResult{Success: true}
	if res == nil {
		return out
	}
	out.Transcript = res.Transcription
	out.QualityScores = res.QualityScores
	out.Content = res.Content
	for _, c := range res.Conflicts {
		out.Conflicts = append(out.Conflicts, dto.ConflictFlag{Topic: c.Topic, StatementA: c.StatementA, StatementB: c.StatementB})
	}
	return out
}

// failureDetail is the error text persisted on the failed entity.
func failureDetail(err error) string {
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		return pe.Reason
	}
	if pipeline.IsTransport(err) {
		return "pipeline_unreachable"
	}
	return err.Error()
}

// StageRunner starts a registered job either inline or through the
// dispatch queue, and settles it when the start itself fails.
type StageRunner struct {
	correlator   *correlator.Correlator
	pipeline     pipeline.Client
	publisher    IPublisherService
	lifecycle    ILifecycleService
	callbackBase string
	logger       logger.ILogger
}

func NewStageRunner(
	corr *correlator.Correlator,
	client pipeline.Client,
	publisher IPublisherService,
	lifecycle ILifecycleService,
	callbackBase string,
	log logger.ILogger,
) *StageRunner {
	return &StageRunner{
		correlator:   corr,
		pipeline:     client,
		publisher:    publisher,
		lifecycle:    lifecycle,
		callbackBase: callbackBase,
		logger:       log,
	}
}

func (r *StageRunner) callbackURL(stage entity.Stage) string {
	return strings.TrimRight(r.callbackBase, "/") + "/" + string(stage) + "-complete"
}

// dispatch queues the call. The result comes back on the webhook.
func (r *StageRunner) dispatch(ctx context.Context, job correlator.Job, msg dto.DispatchMessage) error {
	msg.JobToken = job.Token
	msg.Attempt = job.Attempt
	msg.CallbackURL = r.callbackURL(msg.Stage)

	if err := r.publisher.SendDispatch(ctx, msg); err != nil {
		r.logger.Error("StageRunner", "Failed to queue dispatch", map[string]interface{}{
			"error": err.Error(), "token": job.Token, "stage": msg.Stage,
		})
		r.settleFailure(context.WithoutCancel(ctx), job, entity.FailureReasonDispatch, "dispatch_failed")
		return apperror.Internal("failed to queue pipeline call", err)
	}
	return nil
}

// runInline calls the pipeline within the job ceiling and applies the
// result before returning.
func (r *StageRunner) runInline(ctx context.Context, job correlator.Job, msg dto.DispatchMessage) error {
	msg.JobToken = job.Token
	msg.Attempt = job.Attempt
	msg.CallbackURL = ""

	callCtx, cancel := context.WithTimeout(ctx, r.correlator.Timeout())
	defer cancel()

	res, err := callPipeline(callCtx, r.pipeline, msg)

	// Settlement must finish even if the caller has gone away.
	settleCtx := context.WithoutCancel(ctx)

	if err != nil {
		if callCtx.Err() != nil {
			if _, expErr := r.correlator.Expire(settleCtx, job.Token); expErr != nil {
				return expErr
			}
			return apperror.Timeout("pipeline did not answer within the job ceiling", err)
		}
		detail := failureDetail(err)
		r.settleFailure(settleCtx, job, entity.FailureReasonPipeline, detail)
		return apperror.PipelineFailure(detail, err)
	}

	claimed, err := r.correlator.Complete(settleCtx, job.Token, correlator.OutcomeSucceeded)
	if err != nil {
		return err
	}
	if !claimed {
		return apperror.Timeout("job expired before the result was applied", nil)
	}

	applied, err := r.lifecycle.Apply(settleCtx, job, stageResultOf(res))
	if err != nil {
		reinstate(settleCtx, r.correlator, job, r.logger, "StageRunner")
		return err
	}
	if !applied {
		return apperror.Conflict("the record changed while the pipeline was running")
	}
	return nil
}

func (r *StageRunner) settleFailure(ctx context.Context, job correlator.Job, reason entity.FailureReason, detail string) {
	claimed, err := r.correlator.Complete(ctx, job.Token, correlator.OutcomeFailed)
	if err != nil {
		r.logger.Error("StageRunner", "Failed to settle job", map[string]interface{}{"error": err.Error(), "token": job.Token})
		return
	}
	if !claimed {
		return
	}
	if _, err := r.lifecycle.Fail(ctx, job, reason, detail); err != nil {
		r.logger.Error("StageRunner", "Failed to record failure", map[string]interface{}{"error": err.Error(), "token": job.Token})
		reinstate(ctx, r.correlator, job, r.logger, "StageRunner")
	}
}

// abortJob releases a slot whose accompanying state change was not applied.
func abortJob(ctx context.Context, corr *correlator.Correlator, job correlator.Job, log logger.ILogger, module string) {
	if err := corr.Abort(context.WithoutCancel(ctx), job.Token); err != nil {
		log.Error(module, "Failed to release job slot", map[string]interface{}{"error": err.Error(), "token": job.Token})
	}
}

// reinstate hands a claimed job back to its slot when the state change it
// guarded could not be written. The job then expires at its deadline.
func reinstate(ctx context.Context, corr *correlator.Correlator, job correlator.Job, log logger.ILogger, module string) {
	if err := corr.Reinstate(context.WithoutCancel(ctx), job); err != nil {
		log.Error(module, "Failed to reinstate job", map[string]interface{}{"error": err.Error(), "token": job.Token})
	}
}
