package jobs

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"lancehub/models"
	"lancehub/notify"
	"lancehub/store"
	"lancehub/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	wf       *Workflow
	store    Store
	executor *notify.Executor
}

func NewHandlers(store Store, executor *notify.Executor) *Handlers {
	return &Handlers{
		wf:       NewWorkflow(store),
		store:    store,
		executor: executor,
	}
}

// ------------------ CREATE ------------------

// POST /api/jobs
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	clientID := utils.GetUserIDFromRequest(r)

	var in struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Skills      []string `json:"skills"`
		BudgetMin   float64  `json:"budgetMin"`
		BudgetMax   float64  `json:"budgetMax"`
		Draft       bool     `json:"draft"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Description) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if in.BudgetMin < 0 || in.BudgetMax < in.BudgetMin {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid budget range")
		return
	}

	status := models.JobStatusOpen
	if in.Draft {
		status = models.JobStatusDraft
	}

	job := &models.Job{
		JobID:       utils.GenerateRandomString(15),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Skills:      in.Skills,
		ClientID:    clientID,
		Status:      status,
		BudgetMin:   in.BudgetMin,
		BudgetMax:   in.BudgetMax,
		CreatedAt:   time.Now(),
	}

	if err := h.store.InsertJob(ctx, job); err != nil {
		log.Printf("Insert error: %v", err)
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusCreated, map[string]any{"job": job})
}

// ------------------ READ ------------------

// GET /api/jobs
func (h *Handlers) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	skip, limit := utils.ParsePagination(r, 20, 100)

	f := store.JobFilter{
		Status: r.URL.Query().Get("status"),
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Skip:   skip,
		Limit:  limit,
	}
	if f.Status == "" {
		f.Status = models.JobStatusOpen
	}
	if r.URL.Query().Get("mine") == "true" {
		f.ClientID = utils.GetUserIDFromRequest(r)
		f.Status = r.URL.Query().Get("status")
	}

	items, err := h.store.ListJobs(ctx, f)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if items == nil {
		items = []models.Job{}
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"jobs": items})
}

// GET /api/jobs/:jobid
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	jobID := ps.ByName("jobid")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	// view counting is fire-and-forget
	if err := h.store.IncJobField(ctx, jobID, "viewsCount", 1); err != nil {
		log.Printf("get job: viewsCount for %s: %v", jobID, err)
	}

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{"job": job})
}

// ------------------ COMPLETE ------------------

// POST /api/jobs/:jobid/complete
func (h *Handlers) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	jobID := ps.ByName("jobid")
	userID := utils.GetUserIDFromRequest(r)

	var in CompleteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if job.ClientID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "Only the job owner can complete it")
		return
	}

	result, effects, err := h.wf.Complete(ctx, jobID, in)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	go h.executor.Run(effects)

	utils.RespondWithSuccess(w, http.StatusOK, map[string]any{
		"job":            result.Job,
		"review":         result.Review,
		"portfolioEntry": result.PortfolioEntry,
	})
}
