package admin

import (
	"context"
	"net/url"

	"github.com/sabicash/sabicash/core"
	"github.com/sabicash/sabicash/service/sabiapi"
)

func New(client *sabiapi.Client) core.AdminService {
	return &service{
		client: client,
		tasks:  resource[core.Task]{client: client, path: "/admin/tasks"},
		plans:  resource[core.MiningPlan]{client: client, path: "/admin/mining-plans"},
	}
}

type service struct {
	client *sabiapi.Client
	tasks  resource[core.Task]
	plans  resource[core.MiningPlan]
}

// resource is a REST collection with list, create, update and delete.
type resource[T any] struct {
	client *sabiapi.Client
	path   string
}

func (r resource[T]) list(ctx context.Context, token string) ([]*T, error) {
	var items []*T
	if err := r.client.Get(ctx, r.path, token, nil, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (r resource[T]) create(ctx context.Context, token string, item *T) (*T, error) {
	var out T
	if err := r.client.Post(ctx, r.path, token, item, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (r resource[T]) update(ctx context.Context, token, id string, item *T) (*T, error) {
	if id == "" {
		return nil, core.NewError(core.ErrValidation, "id is required")
	}

	var out T
	if err := r.client.Put(ctx, r.path+"/"+url.PathEscape(id), token, item, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (r resource[T]) delete(ctx context.Context, token, id string) error {
	return r.client.Delete(ctx, r.path+"/"+url.PathEscape(id), token)
}

func (s *service) Analytics(ctx context.Context, token string) (*core.Analytics, error) {
	var a core.Analytics
	if err := s.client.Get(ctx, "/admin/analytics", token, nil, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *service) ListUsers(ctx context.Context, token string) ([]*core.AdminUser, error) {
	var users []*core.AdminUser
	if err := s.client.Get(ctx, "/admin/users", token, nil, &users); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *service) UpdateUserStatus(ctx context.Context, token, userID, status string) (*core.AdminUser, error) {
	var user core.AdminUser
	body := map[string]string{"status": status}
	if err := s.client.Patch(ctx, "/admin/users/"+url.PathEscape(userID), token, body, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *service) DeleteUser(ctx context.Context, token, userID string) error {
	return s.client.Delete(ctx, "/admin/users/"+url.PathEscape(userID), token)
}

func (s *service) ListTransactions(ctx context.Context, token string) ([]*core.Transaction, error) {
	var txs []*core.Transaction
	if err := s.client.Get(ctx, "/admin/transactions", token, nil, &txs); err != nil {
		return nil, err
	}

	return txs, nil
}

func (s *service) ListTasks(ctx context.Context, token string) ([]*core.Task, error) {
	return s.tasks.list(ctx, token)
}

func (s *service) CreateTask(ctx context.Context, token string, task *core.Task) (*core.Task, error) {
	return s.tasks.create(ctx, token, task)
}

func (s *service) UpdateTask(ctx context.Context, token string, task *core.Task) (*core.Task, error) {
	return s.tasks.update(ctx, token, task.ID, task)
}

func (s *service) DeleteTask(ctx context.Context, token, taskID string) error {
	return s.tasks.delete(ctx, token, taskID)
}

func (s *service) ListMiningPlans(ctx context.Context, token string) ([]*core.MiningPlan, error) {
	return s.plans.list(ctx, token)
}

func (s *service) CreateMiningPlan(ctx context.Context, token string, plan *core.MiningPlan) (*core.MiningPlan, error) {
	return s.plans.create(ctx, token, plan)
}

func (s *service) UpdateMiningPlan(ctx context.Context, token string, plan *core.MiningPlan) (*core.MiningPlan, error) {
	return s.plans.update(ctx, token, plan.ID, plan)
}

func (s *service) DeleteMiningPlan(ctx context.Context, token, planID string) error {
	return s.plans.delete(ctx, token, planID)
}

func (s *service) ContractParams(ctx context.Context, token string) (*core.ContractParams, error) {
	var p core.ContractParams
	if err := s.client.Get(ctx, "/admin/contract", token, nil, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *service) UpdateContractParams(ctx context.Context, token string, params *core.ContractParams) (*core.ContractParams, error) {
	var p core.ContractParams
	if err := s.client.Put(ctx, "/admin/contract", token, params, &p); err != nil {
		return nil, err
	}

	return &p, nil
}
