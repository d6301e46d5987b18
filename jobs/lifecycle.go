package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"lancehub/apperr"
	"lancehub/models"
	"lancehub/notify"
	"lancehub/store"
	"lancehub/utils"
)

// Store is the document-store slice the job lifecycle owns transitions on.
type Store interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	InsertJob(ctx context.Context, job *models.Job) error
	UpdateJobIfStatus(ctx context.Context, jobID string, prev []string, fields map[string]any) (bool, error)
	IncJobField(ctx context.Context, jobID, field string, n int) error
	ListJobs(ctx context.Context, f store.JobFilter) ([]models.Job, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateUser(ctx context.Context, userID string, fields map[string]any) error
	InsertReview(ctx context.Context, rev *models.Review) error
}

type Workflow struct {
	store Store
}

func NewWorkflow(store Store) *Workflow {
	return &Workflow{store: store}
}

type CompleteInput struct {
	Rating        int     `json:"rating"`
	Comment       string  `json:"comment"`
	PaymentAmount float64 `json:"paymentAmount"`
	FreelancerID  string  `json:"freelancerId"`
	ClientID      string  `json:"clientId"`
}

type CompleteResult struct {
	Job            *models.Job            `json:"job"`
	Review         *models.Review         `json:"review"`
	PortfolioEntry *models.PortfolioEntry `json:"portfolioEntry"`
}

// Complete closes out a job: status flip, client review, freelancer rating
// update, then portfolio/chat/notification effects. Only the status flip is
// primary; everything after it is best-effort.
func (w *Workflow) Complete(ctx context.Context, jobID string, in CompleteInput) (*CompleteResult, []notify.Effect, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, nil, apperr.New(apperr.KindValidation, "Rating must be between 1 and 5")
	}
	if strings.TrimSpace(in.Comment) == "" {
		return nil, nil, apperr.New(apperr.KindValidation, "Comment is required")
	}
	if in.PaymentAmount <= 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "Payment amount must be positive")
	}

	job, err := w.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != models.JobStatusInProgress && job.Status != models.JobStatusInReview {
		return nil, nil, apperr.Newf(apperr.KindInvalidState, "Job is %s, not in progress", job.Status)
	}

	freelancerID := in.FreelancerID
	if freelancerID == "" {
		freelancerID = job.FreelancerID
	}
	clientID := in.ClientID
	if clientID == "" {
		clientID = job.ClientID
	}

	now := time.Now()
	matched, err := w.store.UpdateJobIfStatus(ctx, jobID,
		[]string{models.JobStatusInProgress, models.JobStatusInReview},
		map[string]any{"status": models.JobStatusCompleted, "completedAt": now, "updatedAt": now})
	if err != nil {
		return nil, nil, err
	}
	if !matched {
		return nil, nil, apperr.New(apperr.KindConcurrentModification, "Job changed concurrently")
	}

	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now

	review := &models.Review{
		ReviewID:   utils.GenerateRandomString(16),
		JobID:      jobID,
		ReviewerID: clientID,
		RevieweeID: freelancerID,
		Rating:     in.Rating,
		Comment:    in.Comment,
		CreatedAt:  now,
	}
	if err := w.store.InsertReview(ctx, review); err != nil {
		log.Printf("complete: insert review for %s: %v", jobID, err)
	}

	w.applyRating(ctx, freelancerID, in.Rating)

	entry := &models.PortfolioEntry{
		EntryID:      utils.GenerateRandomString(16),
		FreelancerID: freelancerID,
		JobID:        jobID,
		Title:        job.Title,
		Description:  job.Description,
		Amount:       in.PaymentAmount,
		CompletedAt:  now,
	}

	effects := []notify.Effect{
		{Portfolio: entry},
		{Message: &notify.MessageEffect{
			Key:          notify.ConversationKeyFor("job", jobID),
			Participants: []string{clientID, freelancerID},
			Content:      fmt.Sprintf("Job completed. Payment of %.2f confirmed.", in.PaymentAmount),
			MessageType:  "system",
			Metadata:     map[string]any{"event": "job_completed", "jobId": jobID},
		}},
		{Notify: &notify.NotifyEffect{
			UserID:  freelancerID,
			Type:    "payment_received",
			Title:   "Payment confirmed",
			Message: fmt.Sprintf("Payment of %.2f for \"%s\" was confirmed", in.PaymentAmount, job.Title),
			Data:    map[string]any{"jobId": jobID, "amount": in.PaymentAmount},
		}},
		{Notify: &notify.NotifyEffect{
			UserID:  clientID,
			Type:    "review_invitation",
			Title:   "Leave a review",
			Message: "The freelancer may review you in return for \"" + job.Title + "\"",
			Data:    map[string]any{"jobId": jobID},
		}},
	}

	return &CompleteResult{Job: job, Review: review, PortfolioEntry: entry}, effects, nil
}

// applyRating folds one rating into the freelancer's incremental mean:
// newAvg = (oldAvg*oldCount + rating) / (oldCount + 1).
func (w *Workflow) applyRating(ctx context.Context, freelancerID string, rating int) {
	user, err := w.store.GetUser(ctx, freelancerID)
	if err != nil {
		log.Printf("complete: load freelancer %s: %v", freelancerID, err)
		return
	}

	oldCount := float64(user.RatingCount)
	newAvg := (user.Rating*oldCount + float64(rating)) / (oldCount + 1)

	err = w.store.UpdateUser(ctx, freelancerID, map[string]any{
		"rating":      newAvg,
		"ratingCount": user.RatingCount + 1,
		"updatedAt":   time.Now(),
	})
	if err != nil {
		log.Printf("complete: update rating for %s: %v", freelancerID, err)
	}
}
