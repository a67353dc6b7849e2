package http

import (
	"errors"
	"net/http"
	"strconv"

	"financas/internal/auth"
	"financas/internal/core"
	"financas/internal/services"
)

const msgPlanConflict = "Este planejamento foi alterado em outra janela. Revise os valores e salve de novo."

type plansData struct {
	Plans []core.Plan
	Empty bool
}

type planFormData struct {
	Action  string
	Editing bool
}

func (s *Server) planManager(r *http.Request) *services.PlanManager {
	user, _ := auth.UserFromContext(r.Context())
	return services.NewPlanManager(s.plans, user, s.metrics)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planManager(r).ListPlans(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	p := s.newPage(r)
	p.Data = plansData{Plans: plans, Empty: len(plans) == 0}
	s.render(w, r, http.StatusOK, "planejamentos", p)
}

func (s *Server) handleNewPlanForm(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r)
	p.Form[core.FieldProgress] = "0.00"
	p.Data = planFormData{Action: "/planejamentos/novo"}
	s.render(w, r, http.StatusOK, "plano_form", p)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest)
		return
	}
	in := planInput(r)
	if _, err := s.planManager(r).CreatePlan(r.Context(), in); err != nil {
		p := s.newPage(r)
		fillPlanForm(p, in)
		p.Data = planFormData{Action: "/planejamentos/novo"}
		s.renderForm(w, r, "plano_form", p, err)
		return
	}
	http.Redirect(w, r, "/planejamentos", http.StatusSeeOther)
}

func (s *Server) handleEditPlanForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	plan, err := s.planManager(r).GetPlan(r.Context(), id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	p := s.newPage(r)
	fillPlanForm(p, core.PlanInput{
		Target:      plan.Target.String(),
		Progress:    plan.Progress.String(),
		Description: plan.Description,
		Version:     plan.Version,
	})
	p.Data = planFormData{Action: editAction(id), Editing: true}
	s.render(w, r, http.StatusOK, "plano_form", p)
}

// handleEditPlan saves the form. A stale version re-renders the form with
// the submitted values and the current version so the user can retry.
func (s *Server) handleEditPlan(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest)
		return
	}

	mgr := s.planManager(r)
	in := planInput(r)
	_, err = mgr.EditPlan(r.Context(), id, in)
	if err == nil {
		http.Redirect(w, r, "/planejamentos", http.StatusSeeOther)
		return
	}

	p := s.newPage(r)
	fillPlanForm(p, in)
	p.Data = planFormData{Action: editAction(id), Editing: true}
	if errors.Is(err, core.ErrConflict) {
		current, getErr := mgr.GetPlan(r.Context(), id)
		if getErr != nil {
			s.renderError(w, r, getErr)
			return
		}
		p.Form["version"] = strconv.FormatInt(current.Version, 10)
		p.Errors["version"] = msgPlanConflict
		s.render(w, r, http.StatusConflict, "plano_form", p)
		return
	}
	s.renderForm(w, r, "plano_form", p, err)
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if err := s.planManager(r).DeletePlan(r.Context(), id); err != nil {
		s.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/planejamentos", http.StatusSeeOther)
}

func planInput(r *http.Request) core.PlanInput {
	// A missing or garbled version skips the concurrency check.
	version, _ := strconv.ParseInt(r.PostFormValue("version"), 10, 64)
	return core.PlanInput{
		Target:      field(r, core.FieldTarget),
		Progress:    field(r, core.FieldProgress),
		Description: field(r, core.FieldDescription),
		Version:     version,
	}
}

func fillPlanForm(p page, in core.PlanInput) {
	p.Form[core.FieldTarget] = in.Target
	p.Form[core.FieldProgress] = in.Progress
	p.Form[core.FieldDescription] = in.Description
	if in.Version > 0 {
		p.Form["version"] = strconv.FormatInt(in.Version, 10)
	}
}

func editAction(id int64) string {
	return "/planejamentos/" + strconv.FormatInt(id, 10) + "/editar"
}
