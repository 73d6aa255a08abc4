package task

import (
	"context"
	"net/url"

	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/sabiapi"
)

func New(client *sabiapi.Client) core.TaskService {
	return &service{client: client}
}

type service struct {
	client *sabiapi.Client
}

func (s *service) List(ctx context.Context, token string) ([]*core.Task, error) {
	var tasks []*core.Task
	if err := s.client.Get(ctx, "/tasks", token, nil, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (s *service) Complete(ctx context.Context, token, taskID string) (*core.TaskCompletion, error) {
	var c core.TaskCompletion
	if err := s.client.Post(ctx, "/tasks/"+url.PathEscape(taskID)+"/complete", token, nil, &c); err != nil {
		return nil, err
	}

	return &c, nil
}
