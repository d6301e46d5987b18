package proposals

import (
	"context"
	"sync"
	"testing"

	"lancehub/apperr"
	"lancehub/models"
)

// fakeStore keeps jobs and proposals in maps and applies the same
// previous-status preconditions the real store does.
type fakeStore struct {
	mu        sync.Mutex
	jobs      map[string]*models.Job
	proposals map[string]*models.Proposal
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:      map[string]*models.Job{},
		proposals: map[string]*models.Proposal{},
	}
}

func (f *fakeStore) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Job not found")
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) UpdateJobIfStatus(_ context.Context, jobID string, prev []string, fields map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, s := range prev {
		if j.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	if s, ok := fields["status"].(string); ok {
		j.Status = s
	}
	if fid, ok := fields["freelancerId"].(string); ok {
		j.FreelancerID = fid
	}
	return true, nil
}

func (f *fakeStore) IncJobField(_ context.Context, jobID, field string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[jobID]; ok && field == "proposalsCount" {
		j.ProposalsCount += n
	}
	return nil
}

func (f *fakeStore) GetProposal(_ context.Context, proposalID string) (*models.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[proposalID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Proposal not found")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) InsertProposal(_ context.Context, p *models.Proposal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.proposals[p.ProposalID] = &cp
	return nil
}

func (f *fakeStore) ActiveProposalExists(_ context.Context, jobID, freelancerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.proposals {
		if p.JobID == jobID && p.FreelancerID == freelancerID && p.Status != models.ProposalStatusWithdrawn {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UpdateProposalIfStatus(_ context.Context, proposalID, prev string, fields map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proposals[proposalID]
	if !ok || p.Status != prev {
		return false, nil
	}
	if s, ok := fields["status"].(string); ok {
		p.Status = s
	}
	if cr, ok := fields["clientResponse"].(string); ok {
		p.ClientResponse = cr
	}
	return true, nil
}

func (f *fakeStore) ListProposalsByJob(_ context.Context, jobID, status string) ([]models.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Proposal
	for _, p := range f.proposals {
		if p.JobID == jobID && (status == "" || p.Status == status) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func seedJob(f *fakeStore, jobID, clientID, status string) {
	f.jobs[jobID] = &models.Job{JobID: jobID, ClientID: clientID, Title: "Build a site", Status: status}
}

func seedProposal(f *fakeStore, id, jobID, freelancerID, status string) {
	f.proposals[id] = &models.Proposal{ProposalID: id, JobID: jobID, FreelancerID: freelancerID, Status: status}
}

func TestSubmitDuplicateRejected(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	wf := NewWorkflow(f)

	in := SubmitInput{ProposedBudget: 500, CoverLetter: "I can do this", DeliveryDays: 7}
	if _, _, err := wf.Submit(context.Background(), "job1", "free1", in); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, _, err := wf.Submit(context.Background(), "job1", "free1", in)
	if !apperr.Is(err, apperr.KindDuplicateProposal) {
		t.Fatalf("expected DuplicateProposal, got %v", err)
	}
}

func TestSubmitAfterWithdrawAllowed(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	wf := NewWorkflow(f)

	in := SubmitInput{ProposedBudget: 500, CoverLetter: "I can do this"}
	p, _, err := wf.Submit(context.Background(), "job1", "free1", in)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := wf.Withdraw(context.Background(), p.ProposalID, "free1"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, _, err := wf.Submit(context.Background(), "job1", "free1", in); err != nil {
		t.Fatalf("resubmit after withdraw: %v", err)
	}
}

func TestSubmitOwnJobRejected(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	wf := NewWorkflow(f)

	_, _, err := wf.Submit(context.Background(), "job1", "client1",
		SubmitInput{ProposedBudget: 500, CoverLetter: "hi"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected Validation, got %v", err)
	}
}

func TestAcceptRejectsSiblingsAndAssignsJob(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	seedProposal(f, "p1", "job1", "free1", models.ProposalStatusPending)
	seedProposal(f, "p2", "job1", "free2", models.ProposalStatusPending)
	seedProposal(f, "p3", "job1", "free3", models.ProposalStatusPending)
	wf := NewWorkflow(f)

	res, effects, err := wf.Accept(context.Background(), "p1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Job.Status != models.JobStatusInProgress || res.Job.FreelancerID != "free1" {
		t.Fatalf("job not assigned: %+v", res.Job)
	}
	if f.proposals["p2"].Status != models.ProposalStatusRejected || f.proposals["p3"].Status != models.ProposalStatusRejected {
		t.Fatalf("siblings not rejected: p2=%s p3=%s", f.proposals["p2"].Status, f.proposals["p3"].Status)
	}

	var accepted, messages int
	for _, e := range effects {
		if e.Notify != nil && e.Notify.Type == "application_accepted" {
			accepted++
		}
		if e.Message != nil {
			messages++
			if e.Message.Key != "job-job1" {
				t.Fatalf("conversation key %q", e.Message.Key)
			}
		}
	}
	if accepted != 1 || messages != 1 {
		t.Fatalf("effects: accepted=%d messages=%d", accepted, messages)
	}
}

func TestAcceptOnAssignedJobFails(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	seedProposal(f, "p1", "job1", "free1", models.ProposalStatusPending)
	seedProposal(f, "p2", "job1", "free2", models.ProposalStatusPending)
	wf := NewWorkflow(f)

	if _, _, err := wf.Accept(context.Background(), "p1"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	// p2 is already swept to rejected by the first accept
	_, _, err := wf.Accept(context.Background(), "p2")
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}
}

func TestConcurrentAcceptSingleWinner(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	seedProposal(f, "p1", "job1", "free1", models.ProposalStatusPending)
	seedProposal(f, "p2", "job1", "free2", models.ProposalStatusPending)
	wf := NewWorkflow(f)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"p1", "p2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, _, errs[i] = wf.Accept(context.Background(), id)
		}(i, id)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.KindConcurrentModification) || apperr.Is(err, apperr.KindInvalidState):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d", wins, losses)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobs["job1"].Status != models.JobStatusInProgress {
		t.Fatalf("job status %s", f.jobs["job1"].Status)
	}
}

func TestRejectRecordsClientResponse(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	seedProposal(f, "p1", "job1", "free1", models.ProposalStatusPending)
	wf := NewWorkflow(f)

	p, effects, err := wf.Reject(context.Background(), "p1", "Budget too high")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if p.Status != models.ProposalStatusRejected || p.ClientResponse != "Budget too high" {
		t.Fatalf("got %+v", p)
	}
	if len(effects) != 1 || effects[0].Notify == nil || effects[0].Notify.Type != "application_rejected" {
		t.Fatalf("effects %+v", effects)
	}
}

func TestTerminalProposalImmutable(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	seedProposal(f, "p1", "job1", "free1", models.ProposalStatusRejected)
	wf := NewWorkflow(f)

	if _, _, err := wf.Accept(context.Background(), "p1"); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("accept: %v", err)
	}
	if _, _, err := wf.Reject(context.Background(), "p1", ""); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("reject: %v", err)
	}
	if _, err := wf.Withdraw(context.Background(), "p1", "free1"); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("withdraw: %v", err)
	}
}

func TestWithdrawOnlyByOwner(t *testing.T) {
	f := newFakeStore()
	seedJob(f, "job1", "client1", models.JobStatusOpen)
	seedProposal(f, "p1", "job1", "free1", models.ProposalStatusPending)
	wf := NewWorkflow(f)

	if _, err := wf.Withdraw(context.Background(), "p1", "free2"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
