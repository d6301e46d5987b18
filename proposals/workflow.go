package proposals

import (
	"context"
	"log"
	"strings"
	"time"

	"lancehub/apperr"
	"lancehub/models"
	"lancehub/notify"
	"lancehub/utils"
)

// Store is the document-store slice the proposal workflow owns transitions on.
type Store interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	UpdateJobIfStatus(ctx context.Context, jobID string, prev []string, fields map[string]any) (bool, error)
	IncJobField(ctx context.Context, jobID, field string, n int) error
	GetProposal(ctx context.Context, proposalID string) (*models.Proposal, error)
	InsertProposal(ctx context.Context, p *models.Proposal) error
	ActiveProposalExists(ctx context.Context, jobID, freelancerID string) (bool, error)
	UpdateProposalIfStatus(ctx context.Context, proposalID, prev string, fields map[string]any) (bool, error)
	ListProposalsByJob(ctx context.Context, jobID, status string) ([]models.Proposal, error)
}

type Workflow struct {
	store Store
}

func NewWorkflow(store Store) *Workflow {
	return &Workflow{store: store}
}

type SubmitInput struct {
	ProposedBudget float64 `json:"proposedBudget"`
	CoverLetter    string  `json:"coverLetter"`
	DeliveryDays   int     `json:"deliveryDays"`
}

// Submit creates a pending proposal for (jobID, freelancerID). At most one
// non-withdrawn proposal may exist per pair.
func (w *Workflow) Submit(ctx context.Context, jobID, freelancerID string, in SubmitInput) (*models.Proposal, []notify.Effect, error) {
	if strings.TrimSpace(in.CoverLetter) == "" {
		return nil, nil, apperr.New(apperr.KindValidation, "Cover letter is required")
	}
	if in.ProposedBudget <= 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "Proposed budget must be positive")
	}

	job, err := w.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != models.JobStatusOpen {
		return nil, nil, apperr.New(apperr.KindInvalidState, "Job is not open for proposals")
	}
	if job.ClientID == freelancerID {
		return nil, nil, apperr.New(apperr.KindValidation, "Cannot submit a proposal on your own job")
	}

	exists, err := w.store.ActiveProposalExists(ctx, jobID, freelancerID)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, apperr.New(apperr.KindDuplicateProposal, "You already have a proposal on this job")
	}

	p := &models.Proposal{
		ProposalID:     utils.GenerateRandomString(16),
		JobID:          jobID,
		FreelancerID:   freelancerID,
		Status:         models.ProposalStatusPending,
		ProposedBudget: in.ProposedBudget,
		CoverLetter:    in.CoverLetter,
		DeliveryDays:   in.DeliveryDays,
		SubmittedAt:    time.Now(),
	}
	if err := w.store.InsertProposal(ctx, p); err != nil {
		return nil, nil, err
	}

	if err := w.store.IncJobField(ctx, jobID, "proposalsCount", 1); err != nil {
		log.Printf("submit: proposalsCount for %s: %v", jobID, err)
	}

	effects := []notify.Effect{{Notify: &notify.NotifyEffect{
		UserID:  job.ClientID,
		Type:    "new_application",
		Title:   "New proposal",
		Message: "A freelancer submitted a proposal on \"" + job.Title + "\"",
		Data:    map[string]any{"jobId": jobID, "proposalId": p.ProposalID},
	}}}

	return p, effects, nil
}

type AcceptResult struct {
	Job      *models.Job      `json:"job"`
	Proposal *models.Proposal `json:"proposal"`
}

// Accept flips the proposal to accepted and assigns the job to its
// freelancer. The job transition carries a previous-status precondition, so
// two concurrent accepts on sibling proposals cannot both win: the loser gets
// ConcurrentModification before anything is mutated.
func (w *Workflow) Accept(ctx context.Context, proposalID string) (*AcceptResult, []notify.Effect, error) {
	p, err := w.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if p.Status != models.ProposalStatusPending {
		return nil, nil, apperr.Newf(apperr.KindInvalidState, "Proposal is already %s", p.Status)
	}

	job, err := w.store.GetJob(ctx, p.JobID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	matched, err := w.store.UpdateJobIfStatus(ctx, job.JobID,
		[]string{models.JobStatusOpen},
		map[string]any{
			"status":            models.JobStatusInProgress,
			"freelancerId":      p.FreelancerID,
			"contractStartDate": now,
			"updatedAt":         now,
		})
	if err != nil {
		return nil, nil, err
	}
	if !matched {
		return nil, nil, apperr.New(apperr.KindConcurrentModification, "Job was assigned concurrently")
	}

	matched, err = w.store.UpdateProposalIfStatus(ctx, p.ProposalID, models.ProposalStatusPending,
		map[string]any{"status": models.ProposalStatusAccepted, "updatedAt": now})
	if err == nil && !matched {
		err = apperr.New(apperr.KindConcurrentModification, "Proposal changed concurrently")
	}
	if err != nil {
		// give the job back so another proposal can be accepted
		if _, rerr := w.store.UpdateJobIfStatus(ctx, job.JobID,
			[]string{models.JobStatusInProgress},
			map[string]any{"status": models.JobStatusOpen, "freelancerId": "", "updatedAt": time.Now()},
		); rerr != nil {
			log.Printf("accept: revert job %s: %v", job.JobID, rerr)
		}
		return nil, nil, err
	}

	p.Status = models.ProposalStatusAccepted
	p.UpdatedAt = now
	job.Status = models.JobStatusInProgress
	job.FreelancerID = p.FreelancerID
	job.ContractStartDate = &now

	// sweep the siblings; each one independently, a failure here must not
	// undo the accept
	effects := []notify.Effect{}
	siblings, err := w.store.ListProposalsByJob(ctx, job.JobID, models.ProposalStatusPending)
	if err != nil {
		log.Printf("accept: list siblings for %s: %v", job.JobID, err)
	}
	for _, sib := range siblings {
		if sib.ProposalID == p.ProposalID {
			continue
		}
		ok, uerr := w.store.UpdateProposalIfStatus(ctx, sib.ProposalID, models.ProposalStatusPending,
			map[string]any{"status": models.ProposalStatusRejected, "updatedAt": now})
		if uerr != nil || !ok {
			log.Printf("accept: reject sibling %s: matched=%v err=%v", sib.ProposalID, ok, uerr)
			continue
		}
		effects = append(effects, notify.Effect{Notify: &notify.NotifyEffect{
			UserID:  sib.FreelancerID,
			Type:    "application_rejected",
			Title:   "Proposal not selected",
			Message: "Your proposal on \"" + job.Title + "\" was not selected",
			Data:    map[string]any{"jobId": job.JobID, "proposalId": sib.ProposalID},
		}})
	}

	effects = append(effects,
		notify.Effect{Notify: &notify.NotifyEffect{
			UserID:  p.FreelancerID,
			Type:    "application_accepted",
			Title:   "Proposal accepted",
			Message: "Your proposal on \"" + job.Title + "\" was accepted",
			Data:    map[string]any{"jobId": job.JobID, "proposalId": p.ProposalID},
		}},
		notify.Effect{Message: &notify.MessageEffect{
			Key:          notify.ConversationKeyFor("job", job.JobID),
			Participants: []string{job.ClientID, p.FreelancerID},
			Content:      "Contract started. The freelancer has been assigned to this job.",
			MessageType:  "system",
			Metadata:     map[string]any{"event": "contract_started", "jobId": job.JobID},
		}},
	)

	return &AcceptResult{Job: job, Proposal: p}, effects, nil
}

// Reject is the client declining a single proposal.
func (w *Workflow) Reject(ctx context.Context, proposalID, clientResponse string) (*models.Proposal, []notify.Effect, error) {
	p, err := w.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if p.Status != models.ProposalStatusPending {
		return nil, nil, apperr.Newf(apperr.KindInvalidState, "Proposal is already %s", p.Status)
	}

	now := time.Now()
	fields := map[string]any{"status": models.ProposalStatusRejected, "updatedAt": now}
	if clientResponse != "" {
		fields["clientResponse"] = clientResponse
	}
	matched, err := w.store.UpdateProposalIfStatus(ctx, proposalID, models.ProposalStatusPending, fields)
	if err != nil {
		return nil, nil, err
	}
	if !matched {
		return nil, nil, apperr.New(apperr.KindConcurrentModification, "Proposal changed concurrently")
	}

	p.Status = models.ProposalStatusRejected
	p.ClientResponse = clientResponse
	p.UpdatedAt = now

	effects := []notify.Effect{{Notify: &notify.NotifyEffect{
		UserID:  p.FreelancerID,
		Type:    "application_rejected",
		Title:   "Proposal declined",
		Message: "Your proposal was declined",
		Data:    map[string]any{"jobId": p.JobID, "proposalId": p.ProposalID},
	}}}

	return p, effects, nil
}

// Withdraw is the freelancer pulling their own pending proposal.
func (w *Workflow) Withdraw(ctx context.Context, proposalID, freelancerID string) (*models.Proposal, error) {
	p, err := w.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if p.FreelancerID != freelancerID {
		return nil, apperr.New(apperr.KindNotFound, "Proposal not found")
	}
	if p.Status != models.ProposalStatusPending {
		return nil, apperr.Newf(apperr.KindInvalidState, "Proposal is already %s", p.Status)
	}

	now := time.Now()
	matched, err := w.store.UpdateProposalIfStatus(ctx, proposalID, models.ProposalStatusPending,
		map[string]any{"status": models.ProposalStatusWithdrawn, "updatedAt": now})
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, apperr.New(apperr.KindConcurrentModification, "Proposal changed concurrently")
	}

	if err := w.store.IncJobField(ctx, p.JobID, "proposalsCount", -1); err != nil {
		log.Printf("withdraw: proposalsCount for %s: %v", p.JobID, err)
	}

	p.Status = models.ProposalStatusWithdrawn
	p.UpdatedAt = now
	return p, nil
}
