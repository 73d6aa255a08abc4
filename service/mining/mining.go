package mining

import (
	"context"

	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/sabiapi"
)

func New(client *sabiapi.Client) core.MiningService {
	return &service{client: client}
}

type service struct {
	client *sabiapi.Client
}

func (s *service) Plans(ctx context.Context, token string) ([]*core.MiningPlan, error) {
	var plans []*core.MiningPlan
	if err := s.client.Get(ctx, "/mining/plans", token, nil, &plans); err != nil {
		return nil, err
	}

	return plans, nil
}

func (s *service) Stakes(ctx context.Context, token string) ([]*core.Stake, error) {
	var stakes []*core.Stake
	if err := s.client.Get(ctx, "/mining/stakes", token, nil, &stakes); err != nil {
		return nil, err
	}

	return stakes, nil
}
