package proposals

import (
	"context"
	"encoding/json"
	"net/http"

	"lancehub/apperr"
	"lancehub/models"
	"lancehub/notify"
	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
)

type handlerStore interface {
	Store
	ListProposalsByFreelancer(ctx context.Context, freelancerID string) ([]models.Proposal, error)
}

type Handlers struct {
	wf       *Workflow
	store    handlerStore
	executor *notify.Executor
}

func NewHandlers(store handlerStore, executor *notify.Executor) *Handlers {
	return &Handlers{
		wf:       NewWorkflow(store),
		store:    store,
		executor: executor,
	}
}

// POST /api/jobs/:jobid/applications
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	freelancerID := utils.GetUserIDFromRequest(r)
	jobID := ps.ByName("jobid")

	var in SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, effects, err := h.wf.Submit(ctx, jobID, freelancerID, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	go h.executor.Run(effects)

	utils.RespondWithSuccess(w, http.StatusCreated, map[string]any{"proposal": p})
}

// PUT /api/applications/:id/status {status, clientResponse}
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	proposalID := ps.ByName("id")

	var in struct {
		Status         string `json:"status"`
		ClientResponse string `json:"clientResponse"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// only the job owner may decide a proposal
	if err := h.authorizeClient(ctx, proposalID, utils.GetUserIDFromRequest(r)); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	switch in.Status {
	case models.ProposalStatusAccepted:
		result, effects, err := h.wf.Accept(ctx, proposalID)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		go h.executor.Run(effects)
		utils.RespondWithSuccess(w, http.StatusOK, map[string]any{
			"job":      result.Job,
			"proposal": result.Proposal,
		})

	case models.ProposalStatusRejected:
		p, effects, err := h.wf.Reject(ctx, proposalID, in.ClientResponse)
		if err != nil {
			utils.RespondWithAppError(w, err)
			return
		}
		go h.executor.Run(effects)
		utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"proposal": p})

	default:
		utils.RespondWithError(w, http.StatusBadRequest, "Status must be accepted or rejected")
	}
}

// POST /api/applications/:id/withdraw
func (h *Handlers) Withdraw(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	freelancerID := utils.GetUserIDFromRequest(r)

	p, err := h.wf.Withdraw(ctx, ps.ByName("id"), freelancerID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"proposal": p})
}

// GET /api/jobs/:jobid/applications
func (h *Handlers) ListForJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	jobID := ps.ByName("jobid")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if job.ClientID != utils.GetUserIDFromRequest(r) {
		utils.RespondWithError(w, http.StatusForbidden, "Only the job owner can view proposals")
		return
	}

	items, err := h.store.ListProposalsByJob(ctx, jobID, r.URL.Query().Get("status"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if items == nil {
		items = []models.Proposal{}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"proposals": items})
}

// GET /api/applications
func (h *Handlers) ListOwn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	freelancerID := utils.GetUserIDFromRequest(r)

	items, err := h.store.ListProposalsByFreelancer(ctx, freelancerID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if items == nil {
		items = []models.Proposal{}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"proposals": items})
}

func (h *Handlers) authorizeClient(ctx context.Context, proposalID, userID string) error {
	p, err := h.store.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	job, err := h.store.GetJob(ctx, p.JobID)
	if err != nil {
		return err
	}
	if job.ClientID != userID {
		return apperr.New(apperr.KindNotFound, "Proposal not found")
	}
	return nil
}
