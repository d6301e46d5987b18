package jobs

import (
	"context"
	"errors"
	"testing"

	"lancehub/apperr"
	"lancehub/models"
	"lancehub/store"
)

type fakeStore struct {
	jobs    map[string]*models.Job
	users   map[string]*models.User
	reviews []models.Review

	failReview bool
	failUser   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string]*models.Job{}, users: map[string]*models.User{}}
}

func (f *fakeStore) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "Job not found")
	}
	cp := *j
	return &cp, nil
}

func (f *fakeStore) InsertJob(_ context.Context, job *models.Job) error {
	cp := *job
	f.jobs[job.JobID] = &cp
	return nil
}

func (f *fakeStore) UpdateJobIfStatus(_ context.Context, jobID string, prev []string, fields map[string]any) (bool, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return false, nil
	}
	for _, s := range prev {
		if j.Status == s {
			if next, ok := fields["status"].(string); ok {
				j.Status = next
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) IncJobField(_ context.Context, jobID, field string, n int) error { return nil }

func (f *fakeStore) ListJobs(_ context.Context, _ store.JobFilter) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	if f.failUser {
		return nil, apperr.New(apperr.KindUpstreamUnavailable, "store down")
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "User not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, userID string, fields map[string]any) error {
	if f.failUser {
		return apperr.New(apperr.KindUpstreamUnavailable, "store down")
	}
	u, ok := f.users[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "User not found")
	}
	if v, ok := fields["rating"].(float64); ok {
		u.Rating = v
	}
	if v, ok := fields["ratingCount"].(int); ok {
		u.RatingCount = v
	}
	return nil
}

func (f *fakeStore) InsertReview(_ context.Context, rev *models.Review) error {
	if f.failReview {
		return errors.New("insert failed")
	}
	f.reviews = append(f.reviews, *rev)
	return nil
}

func validInput() CompleteInput {
	return CompleteInput{Rating: 5, Comment: "Great work", PaymentAmount: 750}
}

func TestCompleteHappyPath(t *testing.T) {
	f := newFakeStore()
	f.jobs["job1"] = &models.Job{JobID: "job1", Title: "API build", ClientID: "client1", FreelancerID: "free1", Status: models.JobStatusInProgress}
	f.users["free1"] = &models.User{UserID: "free1", Rating: 4.0, RatingCount: 3}
	wf := NewWorkflow(f)

	res, effects, err := wf.Complete(context.Background(), "job1", validInput())
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if res.Job.Status != models.JobStatusCompleted {
		t.Fatalf("job status %s", res.Job.Status)
	}
	if len(f.reviews) != 1 || f.reviews[0].RevieweeID != "free1" || f.reviews[0].Rating != 5 {
		t.Fatalf("review %+v", f.reviews)
	}
	if res.PortfolioEntry == nil || res.PortfolioEntry.Amount != 750 {
		t.Fatalf("portfolio %+v", res.PortfolioEntry)
	}

	var portfolio, message, payment, invite int
	for _, e := range effects {
		switch {
		case e.Portfolio != nil:
			portfolio++
		case e.Message != nil:
			message++
			if e.Message.Content != "Job completed. Payment of 750.00 confirmed." {
				t.Fatalf("message %q", e.Message.Content)
			}
		case e.Notify != nil && e.Notify.Type == "payment_received":
			payment++
		case e.Notify != nil && e.Notify.Type == "review_invitation":
			invite++
		}
	}
	if portfolio != 1 || message != 1 || payment != 1 || invite != 1 {
		t.Fatalf("effects portfolio=%d message=%d payment=%d invite=%d", portfolio, message, payment, invite)
	}
}

func TestCompleteIncrementalRating(t *testing.T) {
	f := newFakeStore()
	f.jobs["job1"] = &models.Job{JobID: "job1", ClientID: "client1", FreelancerID: "free1", Status: models.JobStatusInProgress}
	f.users["free1"] = &models.User{UserID: "free1", Rating: 4.0, RatingCount: 3}
	wf := NewWorkflow(f)

	if _, _, err := wf.Complete(context.Background(), "job1", validInput()); err != nil {
		t.Fatalf("complete: %v", err)
	}

	u := f.users["free1"]
	// (4.0*3 + 5) / 4 = 4.25
	if u.Rating != 4.25 || u.RatingCount != 4 {
		t.Fatalf("rating=%v count=%d", u.Rating, u.RatingCount)
	}
}

func TestCompleteFirstRating(t *testing.T) {
	f := newFakeStore()
	f.jobs["job1"] = &models.Job{JobID: "job1", ClientID: "client1", FreelancerID: "free1", Status: models.JobStatusInProgress}
	f.users["free1"] = &models.User{UserID: "free1"}
	wf := NewWorkflow(f)

	if _, _, err := wf.Complete(context.Background(), "job1", validInput()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if u := f.users["free1"]; u.Rating != 5 || u.RatingCount != 1 {
		t.Fatalf("rating=%v count=%d", u.Rating, u.RatingCount)
	}
}

func TestCompleteSurvivesSideEffectFailures(t *testing.T) {
	f := newFakeStore()
	f.jobs["job1"] = &models.Job{JobID: "job1", ClientID: "client1", FreelancerID: "free1", Status: models.JobStatusInProgress}
	f.failReview = true
	f.failUser = true
	wf := NewWorkflow(f)

	res, _, err := wf.Complete(context.Background(), "job1", validInput())
	if err != nil {
		t.Fatalf("complete should not fail on side effects: %v", err)
	}
	if res.Job.Status != models.JobStatusCompleted {
		t.Fatalf("job status %s", res.Job.Status)
	}
}

func TestCompleteValidation(t *testing.T) {
	f := newFakeStore()
	f.jobs["job1"] = &models.Job{JobID: "job1", Status: models.JobStatusInProgress}
	wf := NewWorkflow(f)

	cases := []CompleteInput{
		{Rating: 0, Comment: "ok", PaymentAmount: 100},
		{Rating: 6, Comment: "ok", PaymentAmount: 100},
		{Rating: 3, Comment: "  ", PaymentAmount: 100},
		{Rating: 3, Comment: "ok", PaymentAmount: 0},
	}
	for i, in := range cases {
		if _, _, err := wf.Complete(context.Background(), "job1", in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("case %d: expected Validation, got %v", i, err)
		}
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	f := newFakeStore()
	f.jobs["job1"] = &models.Job{JobID: "job1", Status: models.JobStatusOpen}
	wf := NewWorkflow(f)

	if _, _, err := wf.Complete(context.Background(), "job1", validInput()); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState, got %v", err)
	}

	f.jobs["job1"].Status = models.JobStatusCompleted
	if _, _, err := wf.Complete(context.Background(), "job1", validInput()); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("expected InvalidState on completed, got %v", err)
	}
}
