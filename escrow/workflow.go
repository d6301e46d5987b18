package escrow

import (
	"context"
	"fmt"
	"log"
	"time"

	"lancehub/apperr"
	"lancehub/models"
	"lancehub/notify"
	"lancehub/utils"
)

// Store is the document-store slice the escrow workflow owns transitions on.
type Store interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	UpdateJob(ctx context.Context, jobID string, fields map[string]any) error
	GetEscrow(ctx context.Context, contractID, jobID string) (*models.EscrowRecord, error)
	GetEscrowByJob(ctx context.Context, jobID string) (*models.EscrowRecord, error)
	InsertEscrow(ctx context.Context, rec *models.EscrowRecord) error
	ReleaseEscrow(ctx context.Context, escrowID, releaseType string, ev models.EscrowEvent) (bool, error)
	IncUserTotal(ctx context.Context, userID, field string, amount float64) error
}

// Workflow mirrors confirmed on-chain escrow events into the document store.
// It never moves funds; the chain already did.
type Workflow struct {
	store       Store
	explorerURL string
}

func NewWorkflow(store Store, explorerURL string) *Workflow {
	return &Workflow{store: store, explorerURL: explorerURL}
}

type CreateInput struct {
	JobID             string  `json:"jobId"`
	ContractID        string  `json:"contractId"`
	TxHash            string  `json:"txHash"`
	Network           string  `json:"network"`
	Token             string  `json:"token"`
	Amount            float64 `json:"amount"`
	PlatformFee       float64 `json:"platformFee"`
	ClientAddress     string  `json:"clientAddress"`
	FreelancerAddress string  `json:"freelancerAddress"`
}

// RecordCreated stores a freshly funded escrow contract. On-chain
// confirmation implies funding, so the record starts at funded.
func (w *Workflow) RecordCreated(ctx context.Context, in CreateInput) (*models.EscrowRecord, []notify.Effect, error) {
	if in.JobID == "" || in.ContractID == "" || in.TxHash == "" {
		return nil, nil, apperr.New(apperr.KindValidation, "jobId, contractId and txHash are required")
	}
	if in.Amount <= 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "Amount must be positive")
	}

	job, err := w.store.GetJob(ctx, in.JobID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	rec := &models.EscrowRecord{
		EscrowID:          utils.GenerateRandomString(16),
		JobID:             in.JobID,
		ContractID:        in.ContractID,
		TxHash:            in.TxHash,
		Network:           in.Network,
		Token:             in.Token,
		Amount:            in.Amount,
		PlatformFee:       in.PlatformFee,
		ClientID:          job.ClientID,
		FreelancerID:      job.FreelancerID,
		ClientAddress:     in.ClientAddress,
		FreelancerAddress: in.FreelancerAddress,
		Status:            models.EscrowStatusFunded,
		Events: []models.EscrowEvent{{
			Type:   "escrow_created",
			TxHash: in.TxHash,
			At:     now,
		}},
		CreatedAt: now,
	}

	if err := w.store.InsertEscrow(ctx, rec); err != nil {
		return nil, nil, err
	}

	err = w.store.UpdateJob(ctx, in.JobID, map[string]any{
		"status":        models.JobStatusInProgress,
		"paymentMethod": "crypto",
		"updatedAt":     now,
	})
	if err != nil {
		log.Printf("escrow create: job %s update: %v", in.JobID, err)
	}

	txURL := w.explorerURL + in.TxHash
	effects := []notify.Effect{
		{Notify: &notify.NotifyEffect{
			UserID:  job.ClientID,
			Type:    "escrow_funded",
			Title:   "Escrow funded",
			Message: fmt.Sprintf("Escrow of %.2f %s for \"%s\" is funded", in.Amount, in.Token, job.Title),
			Data:    map[string]any{"jobId": in.JobID, "contractId": in.ContractID, "txUrl": txURL},
		}},
	}
	if job.FreelancerID != "" {
		effects = append(effects, notify.Effect{Notify: &notify.NotifyEffect{
			UserID:  job.FreelancerID,
			Type:    "escrow_funded",
			Title:   "Escrow funded",
			Message: fmt.Sprintf("The client funded %.2f %s in escrow for \"%s\"", in.Amount, in.Token, job.Title),
			Data:    map[string]any{"jobId": in.JobID, "contractId": in.ContractID, "txUrl": txURL},
		}})
	}

	return rec, effects, nil
}

type ReleaseInput struct {
	JobID             string  `json:"jobId"`
	ContractID        string  `json:"contractId"`
	TxHash            string  `json:"txHash"`
	ClientAddress     string  `json:"clientAddress"`
	FreelancerAddress string  `json:"freelancerAddress"`
	ReleaseType       string  `json:"releaseType"`
	Amount            float64 `json:"amount"`
	PlatformFee       float64 `json:"platformFee"`
}

type ReleaseResult struct {
	Release *models.EscrowRecord `json:"release"`
	Job     *models.Job          `json:"job"`
}

// Release marks the escrow released exactly once. A repeat call, or a replay
// of an already-recorded txHash, fails with AlreadyReleased and mutates
// nothing further.
func (w *Workflow) Release(ctx context.Context, in ReleaseInput) (*ReleaseResult, []notify.Effect, error) {
	switch in.ReleaseType {
	case models.ReleaseTypeCompletion, models.ReleaseTypeApproval, models.ReleaseTypeEmergency:
	default:
		return nil, nil, apperr.New(apperr.KindValidation, "releaseType must be completion, approval or emergency")
	}
	if in.TxHash == "" {
		return nil, nil, apperr.New(apperr.KindValidation, "txHash is required")
	}

	rec, err := w.store.GetEscrow(ctx, in.ContractID, in.JobID)
	if err != nil {
		return nil, nil, err
	}
	if rec.Status == models.EscrowStatusReleased {
		return nil, nil, apperr.New(apperr.KindAlreadyReleased, "Escrow funds were already released")
	}
	for _, ev := range rec.Events {
		if ev.TxHash == in.TxHash && ev.Type == "funds_released" {
			return nil, nil, apperr.New(apperr.KindAlreadyReleased, "This release transaction was already recorded")
		}
	}
	// replay/tampering guard: the request totals must match what was funded
	if in.Amount != 0 && in.Amount != rec.Amount {
		return nil, nil, apperr.New(apperr.KindInvalidState, "Amount does not match the escrow record")
	}
	if in.PlatformFee != 0 && in.PlatformFee != rec.PlatformFee {
		return nil, nil, apperr.New(apperr.KindInvalidState, "Platform fee does not match the escrow record")
	}

	now := time.Now()
	released, err := w.store.ReleaseEscrow(ctx, rec.EscrowID, in.ReleaseType, models.EscrowEvent{
		Type:   "funds_released",
		TxHash: in.TxHash,
		Note:   in.ReleaseType,
		At:     now,
	})
	if err != nil {
		return nil, nil, err
	}
	if !released {
		return nil, nil, apperr.New(apperr.KindAlreadyReleased, "Escrow funds were already released")
	}

	rec.Status = models.EscrowStatusReleased
	rec.ReleaseType = in.ReleaseType
	rec.Events = append(rec.Events, models.EscrowEvent{Type: "funds_released", TxHash: in.TxHash, Note: in.ReleaseType, At: now})

	jobStatus := models.JobStatusCompleted
	if in.ReleaseType == models.ReleaseTypeEmergency {
		jobStatus = models.JobStatusCancelled
	}
	if err := w.store.UpdateJob(ctx, in.JobID, map[string]any{"status": jobStatus, "updatedAt": now}); err != nil {
		log.Printf("release: job %s update: %v", in.JobID, err)
	}

	// emergency refunds move nothing to the freelancer, so totals stay put
	if in.ReleaseType != models.ReleaseTypeEmergency {
		if err := w.store.IncUserTotal(ctx, rec.FreelancerID, "totalEarnings", rec.Amount); err != nil {
			log.Printf("release: earnings for %s: %v", rec.FreelancerID, err)
		}
		if err := w.store.IncUserTotal(ctx, rec.ClientID, "totalSpent", rec.Amount+rec.PlatformFee); err != nil {
			log.Printf("release: spent for %s: %v", rec.ClientID, err)
		}
	}

	job, err := w.store.GetJob(ctx, in.JobID)
	if err != nil {
		log.Printf("release: reload job %s: %v", in.JobID, err)
		job = &models.Job{JobID: in.JobID, Status: jobStatus}
	}

	effects := []notify.Effect{{Message: &notify.MessageEffect{
		Key:          notify.ConversationKeyFor("job", in.JobID),
		Participants: []string{rec.ClientID, rec.FreelancerID},
		Content:      releaseMessage(in.ReleaseType, rec.Amount, rec.Token),
		MessageType:  "system",
		Metadata: map[string]any{
			"event":       "funds_released",
			"releaseType": in.ReleaseType,
			"txUrl":       w.explorerURL + in.TxHash,
		},
	}}}

	return &ReleaseResult{Release: rec, Job: job}, effects, nil
}

func releaseMessage(releaseType string, amount float64, token string) string {
	switch releaseType {
	case models.ReleaseTypeEmergency:
		return fmt.Sprintf("Emergency release: %.2f %s was returned to the client and the job was cancelled.", amount, token)
	case models.ReleaseTypeApproval:
		return fmt.Sprintf("The client approved the work. %.2f %s was released to the freelancer.", amount, token)
	default:
		return fmt.Sprintf("Job completed. %.2f %s was released to the freelancer.", amount, token)
	}
}
