package models

import (
	"time"
)

// Job statuses
const (
	JobStatusDraft      = "draft"
	JobStatusOpen       = "open"
	JobStatusInProgress = "in_progress"
	JobStatusInReview   = "in_review"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
	JobStatusDisputed   = "disputed"
)

// Proposal statuses
const (
	ProposalStatusPending   = "pending"
	ProposalStatusAccepted  = "accepted"
	ProposalStatusRejected  = "rejected"
	ProposalStatusWithdrawn = "withdrawn"
)

// Escrow statuses
const (
	EscrowStatusCreated    = "created"
	EscrowStatusFunded     = "funded"
	EscrowStatusInProgress = "in_progress"
	EscrowStatusCompleted  = "completed"
	EscrowStatusDisputed   = "disputed"
	EscrowStatusReleased   = "released"
)

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusActive    = "active"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Release types accepted by the escrow release flow.
const (
	ReleaseTypeCompletion = "completion"
	ReleaseTypeApproval   = "approval"
	ReleaseTypeEmergency  = "emergency"
)

// SystemSenderID is the reserved sender for workflow-generated chat messages.
const SystemSenderID = "system"

type Job struct {
	JobID             string     `bson:"jobid" json:"jobid"`
	Title             string     `bson:"title" json:"title"`
	Description       string     `bson:"description" json:"description"`
	Category          string     `bson:"category,omitempty" json:"category,omitempty"`
	Skills            []string   `bson:"skills,omitempty" json:"skills,omitempty"`
	ClientID          string     `bson:"clientId" json:"clientId"`
	FreelancerID      string     `bson:"freelancerId,omitempty" json:"freelancerId,omitempty"`
	Status            string     `bson:"status" json:"status"`
	BudgetMin         float64    `bson:"budgetMin" json:"budgetMin"`
	BudgetMax         float64    `bson:"budgetMax" json:"budgetMax"`
	PaymentMethod     string     `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	ProposalsCount    int        `bson:"proposalsCount" json:"proposalsCount"`
	ViewsCount        int        `bson:"viewsCount" json:"viewsCount"`
	ContractStartDate *time.Time `bson:"contractStartDate,omitempty" json:"contractStartDate,omitempty"`
	CompletedAt       *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type Proposal struct {
	ProposalID     string    `bson:"proposalid" json:"proposalid"`
	JobID          string    `bson:"jobid" json:"jobid"`
	FreelancerID   string    `bson:"freelancerId" json:"freelancerId"`
	Status         string    `bson:"status" json:"status"`
	ProposedBudget float64   `bson:"proposedBudget" json:"proposedBudget"`
	CoverLetter    string    `bson:"coverLetter" json:"coverLetter"`
	DeliveryDays   int       `bson:"deliveryDays,omitempty" json:"deliveryDays,omitempty"`
	ClientResponse string    `bson:"clientResponse,omitempty" json:"clientResponse,omitempty"`
	SubmittedAt    time.Time `bson:"submittedAt" json:"submittedAt"`
	UpdatedAt      time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// EscrowEvent is one entry of the append-only escrow event log.
type EscrowEvent struct {
	Type   string    `bson:"type" json:"type"`
	TxHash string    `bson:"txHash,omitempty" json:"txHash,omitempty"`
	Note   string    `bson:"note,omitempty" json:"note,omitempty"`
	At     time.Time `bson:"at" json:"at"`
}

type EscrowRecord struct {
	EscrowID          string        `bson:"escrowid" json:"escrowid"`
	JobID             string        `bson:"jobid" json:"jobid"`
	ContractID        string        `bson:"contractId" json:"contractId"`
	TxHash            string        `bson:"txHash" json:"txHash"`
	Network           string        `bson:"network" json:"network"`
	Token             string        `bson:"token" json:"token"`
	Amount            float64       `bson:"amount" json:"amount"`
	PlatformFee       float64       `bson:"platformFee" json:"platformFee"`
	ClientID          string        `bson:"clientId" json:"clientId"`
	FreelancerID      string        `bson:"freelancerId" json:"freelancerId"`
	ClientAddress     string        `bson:"clientAddress" json:"clientAddress"`
	FreelancerAddress string        `bson:"freelancerAddress" json:"freelancerAddress"`
	Status            string        `bson:"status" json:"status"`
	Events            []EscrowEvent `bson:"events" json:"events"`
	ReleaseType       string        `bson:"releaseType,omitempty" json:"releaseType,omitempty"`
	CreatedAt         time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time     `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type Notification struct {
	NotificationID string         `bson:"notificationid" json:"notificationid"`
	UserID         string         `bson:"userId" json:"userId"`
	Type           string         `bson:"type" json:"type"`
	Title          string         `bson:"title" json:"title"`
	Message        string         `bson:"message" json:"message"`
	Data           map[string]any `bson:"data,omitempty" json:"data,omitempty"`
	IsRead         bool           `bson:"isRead" json:"isRead"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
}

type Conversation struct {
	ConversationID string    `bson:"conversationid" json:"conversationid"`
	Key            string    `bson:"key,omitempty" json:"key,omitempty"`
	Participants   []string  `bson:"participants" json:"participants"`
	LastMessage    string    `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	LastMessageAt  time.Time `bson:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

type Message struct {
	MessageID      string         `bson:"messageid" json:"messageid"`
	ConversationID string         `bson:"conversationId" json:"conversationId"`
	SenderID       string         `bson:"senderId" json:"senderId"`
	Content        string         `bson:"content" json:"content"`
	MessageType    string         `bson:"messageType" json:"messageType"` // text, system, order_card
	Metadata       map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
}

type Order struct {
	OrderID        string    `bson:"orderid" json:"orderid"`
	UserID         string    `bson:"userId" json:"userId"`
	SpecialistID   string    `bson:"specialistId" json:"specialistId"`
	TariffID       string    `bson:"tariffId" json:"tariffId"`
	Amount         float64   `bson:"amount" json:"amount"`
	Status         string    `bson:"status" json:"status"`
	ConversationID string    `bson:"conversationId,omitempty" json:"conversationId,omitempty"`
	Requirements   string    `bson:"requirements,omitempty" json:"requirements,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type User struct {
	UserID           string    `bson:"userid" json:"userid"`
	Username         string    `bson:"username" json:"username"`
	Email            string    `bson:"email" json:"email"`
	PasswordHash     string    `bson:"passwordHash" json:"-"`
	Role             []string  `bson:"role" json:"role"`
	Bio              string    `bson:"bio,omitempty" json:"bio,omitempty"`
	Skills           []string  `bson:"skills,omitempty" json:"skills,omitempty"`
	AvatarURL        string    `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Rating           float64   `bson:"rating" json:"rating"`
	RatingCount      int       `bson:"ratingCount" json:"ratingCount"`
	TotalEarnings    float64   `bson:"totalEarnings" json:"totalEarnings"`
	TotalSpent       float64   `bson:"totalSpent" json:"totalSpent"`
	RefreshHash      string    `bson:"refreshHash,omitempty" json:"-"`
	RefreshExpiresAt time.Time `bson:"refreshExpiresAt,omitempty" json:"-"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type Review struct {
	ReviewID   string    `bson:"reviewid" json:"reviewid"`
	JobID      string    `bson:"jobid" json:"jobid"`
	ReviewerID string    `bson:"reviewerId" json:"reviewerId"`
	RevieweeID string    `bson:"revieweeId" json:"revieweeId"`
	Rating     int       `bson:"rating" json:"rating"`
	Comment    string    `bson:"comment" json:"comment"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

type PortfolioEntry struct {
	EntryID      string    `bson:"entryid" json:"entryid"`
	FreelancerID string    `bson:"freelancerId" json:"freelancerId"`
	JobID        string    `bson:"jobid" json:"jobid"`
	Title        string    `bson:"title" json:"title"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	Amount       float64   `bson:"amount" json:"amount"`
	CompletedAt  time.Time `bson:"completedAt" json:"completedAt"`
}

// IdempotencyRecord backs the Idempotency-Key middleware on the web3 routes.
type IdempotencyRecord struct {
	Key         string         `bson:"key" json:"key"`
	Method      string         `bson:"method" json:"method"`
	Path        string         `bson:"path" json:"path"`
	UserID      string         `bson:"user_id" json:"user_id"`
	RequestHash string         `bson:"request_hash" json:"request_hash"`
	Response    map[string]any `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
	ExpiresAt   time.Time      `bson:"expires_at" json:"expires_at"`
}

// WorkflowEvent is published on the Redis event channel and forwarded to the
// live hub so connected users see notifications without polling.
type WorkflowEvent struct {
	Event  string         `json:"event"`
	UserID string         `json:"userId"`
	Data   map[string]any `json:"data,omitempty"`
}
