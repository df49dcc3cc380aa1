package service

import (
	"context"
	"encoding/json"
	"time"

	"lifestory-be/internal/dto"
	"lifestory-be/internal/entity"
	"lifestory-be/internal/pkg/logger"
	"lifestory-be/pkg/correlator"
	"lifestory-be/pkg/pipeline"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	correlator *correlator.Correlator
	pipeline   pipeline.Client
	lifecycle  ILifecycleService
	retry      RetryPolicy
	logger     logger.ILogger
}

// NewConsumerService builds the worker that makes the queued pipeline calls.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	corr *correlator.Correlator,
	client pipeline.Client,
	lifecycle ILifecycleService,
	retry RetryPolicy,
	log logger.ILogger,
) IConsumerService {
	if retry.MaxTries == 0 {
		retry.MaxTries = 1
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 500 * time.Millisecond
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		correlator: corr,
		pipeline:   client,
		lifecycle:  lifecycle,
		retry:      retry,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Invalid messages are acked so they are not redelivered forever.
	defer msg.Ack()

	var payload dto.DispatchMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Dispatch", "Failed to unmarshal dispatch message", map[string]interface{}{"error": err.Error()})
		return
	}

	// The call outlives the request that queued it but not the job ceiling.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cs.correlator.Timeout())
	defer cancel()

	callCtx, span := otel.Tracer("dispatch").Start(callCtx, "dispatch."+string(payload.Stage))
	defer span.End()
	span.SetAttributes(
		attribute.String("stage", string(payload.Stage)),
		attribute.String("subject_id", payload.SubjectId.String()),
		attribute.Int("attempt", payload.Attempt),
	)

	key := correlator.Key{SubjectID: payload.SubjectId, Stage: string(payload.Stage)}
	job, err := cs.correlator.Lookup(callCtx, key)
	if err != nil {
		cs.logger.Error("Dispatch", "Job lookup failed", map[string]interface{}{"error": err.Error(), "token": payload.JobToken})
		return
	}
	if job == nil || job.Token != payload.JobToken {
		cs.logger.Info("Dispatch", "Job no longer active, skipping call", map[string]interface{}{
			"token": payload.JobToken, "subject_id": payload.SubjectId, "stage": payload.Stage,
		})
		return
	}

	tries := 0
	_, err = backoff.Retry(callCtx, func() (*pipeline.Result, error) {
		tries++
		res, err := callPipeline(callCtx, cs.pipeline, payload)
		if err != nil && !pipeline.IsTransport(err) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	},
		backoff.WithBackOff(cs.newBackOff()),
		backoff.WithMaxTries(cs.retry.MaxTries),
	)
	if err == nil {
		cs.logger.Info("Dispatch", "Pipeline accepted job", map[string]interface{}{
			"token": job.Token, "stage": payload.Stage, "tries": tries,
		})
		return
	}

	span.RecordError(err)
	cs.logger.Error("Dispatch", "Pipeline call failed", map[string]interface{}{
		"error": err.Error(), "token": job.Token, "stage": payload.Stage, "tries": tries,
	})

	settleCtx := context.WithoutCancel(ctx)
	claimed, cerr := cs.correlator.Complete(settleCtx, job.Token, correlator.OutcomeFailed)
	if cerr != nil || !claimed {
		return
	}
	reason := entity.FailureReasonPipeline
	if pipeline.IsTransport(err) {
		reason = entity.FailureReasonDispatch
	}
	if _, err := cs.lifecycle.Fail(settleCtx, *job, reason, failureDetail(err)); err != nil {
		cs.logger.Error("Dispatch", "Failed to record dispatch failure", map[string]interface{}{"error": err.Error(), "token": job.Token})
		reinstate(settleCtx, cs.correlator, *job, cs.logger, "Dispatch")
	}
}

func (cs *consumerService) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cs.retry.InitialInterval
	return b
}
