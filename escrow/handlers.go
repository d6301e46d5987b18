package escrow

import (
	"encoding/json"
	"net/http"

	"lancehub/notify"
	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	wf       *Workflow
	store    Store
	executor *notify.Executor
}

func NewHandlers(store Store, executor *notify.Executor, explorerURL string) *Handlers {
	return &Handlers{
		wf:       NewWorkflow(store, explorerURL),
		store:    store,
		executor: executor,
	}
}

// POST /api/web3/create-escrow
func (h *Handlers) CreateEscrow(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.store.GetJob(ctx, in.JobID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if utils.GetUserIDFromRequest(r) != job.ClientID {
		utils.RespondWithError(w, http.StatusForbidden, "Only the job's client can fund escrow")
		return
	}

	rec, effects, err := h.wf.RecordCreated(ctx, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	go h.executor.Run(effects)

	utils.RespondWithSuccess(w, http.StatusCreated, map[string]any{"escrow": rec})
}

// POST /api/web3/release-funds
func (h *Handlers) ReleaseFunds(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	var in ReleaseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.store.GetEscrow(ctx, in.ContractID, in.JobID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	userID := utils.GetUserIDFromRequest(r)
	if userID != rec.ClientID && userID != rec.FreelancerID {
		utils.RespondWithError(w, http.StatusForbidden, "Not a party to this escrow")
		return
	}

	result, effects, err := h.wf.Release(ctx, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	go h.executor.Run(effects)

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{
		"release": result.Release,
		"job":     result.Job,
	})
}

// GET /api/escrow/:jobid
func (h *Handlers) GetByJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()

	rec, err := h.store.GetEscrowByJob(ctx, ps.ByName("jobid"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"escrow": rec})
}
