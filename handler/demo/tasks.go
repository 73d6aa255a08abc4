package demo

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sabicash/sabicash/core"
	"github.com/zyedidia/generic/mapset"
)

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)

	s.mux.Lock()
	done := s.completed[c.Subject]
	tasks := make([]*core.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.Active {
			continue
		}

		v := *t
		v.Completed = done.Has(t.ID)
		tasks = append(tasks, &v)
	}
	s.mux.Unlock()

	s.render(w, http.StatusOK, tasks)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)
	id := chi.URLParam(r, "id")

	s.mux.Lock()
	defer s.mux.Unlock()

	task := s.findTask(id)
	if task == nil || !task.Active {
		s.error(w, http.StatusNotFound, "", "task not found")
		return
	}

	done, ok := s.completed[c.Subject]
	if !ok {
		done = mapset.New[string]()
		s.completed[c.Subject] = done
	}

	if done.Has(id) {
		s.error(w, http.StatusBadRequest, "task_completed", "task already completed")
		return
	}

	done.Put(id)

	a := s.accounts[c.Subject]
	a.Points += task.Points
	s.appendHistory(a.ID, core.PointsEntryTask, task.Points, task.Title, s.now())

	s.render(w, http.StatusOK, core.TaskCompletion{
		TaskID:          id,
		PointsAwarded:   task.Points,
		NewPointBalance: a.Points,
	})
}

// findTask requires s.mux
func (s *Server) findTask(id string) *core.Task {
	for _, t := range s.tasks {
		if t.ID == id {
			return t
		}
	}

	return nil
}

func (s *Server) listPlans(w http.ResponseWriter, r *http.Request) {
	s.mux.Lock()
	plans := make([]*core.MiningPlan, 0, len(s.plans))
	for _, p := range s.plans {
		if p.Active {
			v := *p
			plans = append(plans, &v)
		}
	}
	s.mux.Unlock()

	s.render(w, http.StatusOK, plans)
}

func (s *Server) listStakes(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r)

	s.mux.Lock()
	stakes := append([]*core.Stake{}, s.stakes[c.Subject]...)
	s.mux.Unlock()

	s.render(w, http.StatusOK, stakes)
}
