package service

import (
	"context"
	"encoding/json"

	"lifestory-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// IPublisherService queues pipeline calls for the dispatch consumer.
type IPublisherService interface {
	SendDispatch(ctx context.Context, msg dto.DispatchMessage) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (p *publisherService) SendDispatch(ctx context.Context, msg dto.DispatchMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	wmMsg := message.NewMessage(watermill.NewUUID(), payload)
	wmMsg.Metadata.Set("stage", string(msg.Stage))
	wmMsg.Metadata.Set("job_token", msg.JobToken)
	wmMsg.SetContext(ctx)

	return p.publisher.Publish(p.topicName, wmMsg)
}
