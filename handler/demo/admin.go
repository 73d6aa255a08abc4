package demo

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pandodao/generic"
	"github.com/sabicash/sabicash/core"
	"github.com/shopspring/decimal"
)

func (s *Server) adminRoutes(r chi.Router) {
	r.Get("/analytics", s.analytics)

	r.Get("/users", s.listUsers)
	r.Patch("/users/{id}", s.updateUser)
	r.Delete("/users/{id}", s.deleteUser)

	r.Get("/transactions", s.listTransactions)

	r.Get("/tasks", s.adminListTasks)
	r.Post("/tasks", s.createTask)
	r.Put("/tasks/{id}", s.updateTask)
	r.Delete("/tasks/{id}", s.deleteTask)

	r.Get("/mining-plans", s.adminListPlans)
	r.Post("/mining-plans", s.createPlan)
	r.Put("/mining-plans/{id}", s.updatePlan)
	r.Delete("/mining-plans/{id}", s.deletePlan)

	r.Get("/contract", s.getContract)
	r.Put("/contract", s.updateContract)
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	defer s.mux.Unlock()

	var out core.Analytics
	out.TotalUsers = int64(len(s.accounts))
	for _, a := range s.accounts {
		if a.Status == "active" {
			out.ActiveUsers++
		}
	}

	for _, entries := range s.history {
		for _, e := range entries {
			if e.Points > 0 {
				out.TotalPointsIssued += e.Points
			}
		}
	}

	out.TotalSabiCashConverted = decimal.Zero
	for _, tx := range s.txs {
		out.TotalSabiCashConverted = out.TotalSabiCashConverted.Add(tx.SabiCashAmount)
	}
	out.TotalTransactions = int64(len(s.txs))

	s.render(w, http.StatusOK, out)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	users := s.sortedAccounts()
	s.mux.Unlock()

	s.render(w, http.StatusOK, users)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	if req.Status != "active" && req.Status != "suspended" {
		s.error(w, http.StatusUnprocessableEntity, "", "status must be active or suspended")
		return
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	a, ok := s.accounts[chi.URLParam(r, "id")]
	if !ok {
		s.error(w, http.StatusNotFound, "", "user not found")
		return
	}

	a.Status = req.Status
	s.render(w, http.StatusOK, a.AdminUser)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == claimsFrom(r).Subject {
		s.error(w, http.StatusBadRequest, "", "cannot delete yourself")
		return
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.accounts[id]; !ok {
		s.error(w, http.StatusNotFound, "", "user not found")
		return
	}

	delete(s.accounts, id)
	dropTokens(s.refresh, id)
	dropTokens(s.rideTokens, id)
	delete(s.history, id)
	delete(s.completed, id)
	delete(s.stakes, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	txs := generic.MapSlice(s.txs, func(tx *core.Transaction) *core.Transaction {
		v := *tx
		return &v
	})
	s.mux.Unlock()

	s.render(w, http.StatusOK, txs)
}

func (s *Server) adminListTasks(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	tasks := generic.MapSlice(s.tasks, func(t *core.Task) *core.Task {
		v := *t
		return &v
	})
	s.mux.Unlock()

	s.render(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var task core.Task
	if err := decode(r, &task); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	if task.Title == "" || task.Points <= 0 {
		s.error(w, http.StatusUnprocessableEntity, "", "title and positive points are required")
		return
	}

	task.ID = uuid.NewString()
	task.Completed = false

	s.mux.Lock()
	s.tasks = append(s.tasks, &task)
	s.mux.Unlock()

	s.render(w, http.StatusCreated, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req core.Task
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	task := s.findTask(chi.URLParam(r, "id"))
	if task == nil {
		s.error(w, http.StatusNotFound, "", "task not found")
		return
	}

	req.ID = task.ID
	req.Completed = false
	*task = req
	s.render(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mux.Lock()
	defer s.mux.Unlock()

	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	s.error(w, http.StatusNotFound, "", "task not found")
}

func (s *Server) adminListPlans(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	plans := generic.MapSlice(s.plans, func(p *core.MiningPlan) *core.MiningPlan {
		v := *p
		return &v
	})
	s.mux.Unlock()

	s.render(w, http.StatusOK, plans)
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var plan core.MiningPlan
	if err := decode(r, &plan); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	if plan.Name == "" || plan.DurationDays <= 0 || !plan.DailyRate.IsPositive() {
		s.error(w, http.StatusUnprocessableEntity, "", "name, duration and positive daily rate are required")
		return
	}

	plan.ID = uuid.NewString()

	s.mux.Lock()
	s.plans = append(s.plans, &plan)
	s.mux.Unlock()

	s.render(w, http.StatusCreated, plan)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	var req core.MiningPlan
	if err := decode(r, &req); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	id := chi.URLParam(r, "id")

	s.mux.Lock()
	defer s.mux.Unlock()

	for _, p := range s.plans {
		if p.ID == id {
			req.ID = id
			*p = req
			s.render(w, http.StatusOK, p)
			return
		}
	}

	s.error(w, http.StatusNotFound, "", "mining plan not found")
}

func (s *Server) deletePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mux.Lock()
	defer s.mux.Unlock()

	for i, p := range s.plans {
		if p.ID == id {
			s.plans = append(s.plans[:i], s.plans[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	s.error(w, http.StatusNotFound, "", "mining plan not found")
}

func (s *Server) getContract(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	params := s.contract
	s.mux.Unlock()

	s.render(w, http.StatusOK, params)
}

func (s *Server) updateContract(w http.ResponseWriter, r *http.Request) {
	var params core.ContractParams
	if err := decode(r, &params); err != nil {
		s.error(w, http.StatusBadRequest, "", "invalid JSON body")
		return
	}

	if !params.ConversionRate.IsPositive() || params.MinConversion <= 0 {
		s.error(w, http.StatusUnprocessableEntity, "", "conversion rate and minimum must be positive")
		return
	}

	s.mux.Lock()
	s.contract = params
	s.mux.Unlock()

	s.logger.Info("contract params updated", "rate", params.ConversionRate, "min", params.MinConversion, "paused", params.Paused)
	s.render(w, http.StatusOK, params)
}
