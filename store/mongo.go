// Package store is the document-store boundary. Workflow packages declare
// narrow consumer interfaces satisfied by *Mongo so they can be tested with
// in-memory fakes.
package store

import (
	"context"
	"errors"
	"time"

	"lancehub/apperr"
	"lancehub/db"
	"lancehub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Every store call is one network round-trip; opTimeout bounds each of them.
const opTimeout = 10 * time.Second

type Mongo struct{}

func NewMongo() *Mongo { return &Mongo{} }

func opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, opTimeout)
}

func wrapErr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.Wrap(apperr.KindNotFound, op+": not found", err)
	}
	return apperr.Wrap(apperr.KindUpstreamUnavailable, op+" failed", err)
}

// ---------- jobs ----------

func (m *Mongo) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var job models.Job
	if err := db.JobsCollection.FindOne(ctx, bson.M{"jobid": jobID}).Decode(&job); err != nil {
		return nil, wrapErr("get job", err)
	}
	return &job, nil
}

func (m *Mongo) InsertJob(ctx context.Context, job *models.Job) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.JobsCollection.InsertOne(ctx, job); err != nil {
		return wrapErr("insert job", err)
	}
	return nil
}

func (m *Mongo) UpdateJob(ctx context.Context, jobID string, fields map[string]any) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err := db.JobsCollection.UpdateOne(ctx, bson.M{"jobid": jobID}, bson.M{"$set": fields})
	if err != nil {
		return wrapErr("update job", err)
	}
	return nil
}

// UpdateJobIfStatus applies fields only when the job's current status is one
// of prev. Returns false when no document matched, which callers treat as a
// lost optimistic-concurrency race.
func (m *Mongo) UpdateJobIfStatus(ctx context.Context, jobID string, prev []string, fields map[string]any) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	res, err := db.JobsCollection.UpdateOne(ctx,
		bson.M{"jobid": jobID, "status": bson.M{"$in": prev}},
		bson.M{"$set": fields},
	)
	if err != nil {
		return false, wrapErr("update job", err)
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) IncJobField(ctx context.Context, jobID, field string, n int) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err := db.JobsCollection.UpdateOne(ctx, bson.M{"jobid": jobID}, bson.M{"$inc": bson.M{field: n}})
	if err != nil {
		return wrapErr("inc job field", err)
	}
	return nil
}

// JobFilter narrows ListJobs. Zero values mean "no constraint".
type JobFilter struct {
	Status   string
	ClientID string
	Search   string
	Skip     int64
	Limit    int64
}

func (m *Mongo) ListJobs(ctx context.Context, f JobFilter) ([]models.Job, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": f.Search, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": f.Search, "$options": "i"}},
		}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSkip(f.Skip).SetLimit(limit).SetSort(bson.M{"createdAt": -1})

	cursor, err := db.JobsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr("list jobs", err)
	}
	defer cursor.Close(ctx)

	var jobs []models.Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, wrapErr("decode jobs", err)
	}
	return jobs, nil
}

// ---------- proposals ----------

func (m *Mongo) GetProposal(ctx context.Context, proposalID string) (*models.Proposal, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var p models.Proposal
	if err := db.ProposalsCollection.FindOne(ctx, bson.M{"proposalid": proposalID}).Decode(&p); err != nil {
		return nil, wrapErr("get proposal", err)
	}
	return &p, nil
}

func (m *Mongo) InsertProposal(ctx context.Context, p *models.Proposal) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.ProposalsCollection.InsertOne(ctx, p); err != nil {
		return wrapErr("insert proposal", err)
	}
	return nil
}

// ActiveProposalExists reports whether (job, freelancer) already has a
// proposal in any non-withdrawn state.
func (m *Mongo) ActiveProposalExists(ctx context.Context, jobID, freelancerID string) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	n, err := db.ProposalsCollection.CountDocuments(ctx, bson.M{
		"jobid":        jobID,
		"freelancerId": freelancerID,
		"status":       bson.M{"$ne": models.ProposalStatusWithdrawn},
	})
	if err != nil {
		return false, wrapErr("count proposals", err)
	}
	return n > 0, nil
}

func (m *Mongo) UpdateProposalIfStatus(ctx context.Context, proposalID, prev string, fields map[string]any) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	res, err := db.ProposalsCollection.UpdateOne(ctx,
		bson.M{"proposalid": proposalID, "status": prev},
		bson.M{"$set": fields},
	)
	if err != nil {
		return false, wrapErr("update proposal", err)
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) ListProposalsByJob(ctx context.Context, jobID, status string) ([]models.Proposal, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	filter := bson.M{"jobid": jobID}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := db.ProposalsCollection.Find(ctx, filter, options.Find().SetSort(bson.M{"submittedAt": -1}))
	if err != nil {
		return nil, wrapErr("list proposals", err)
	}
	defer cursor.Close(ctx)

	var proposals []models.Proposal
	if err := cursor.All(ctx, &proposals); err != nil {
		return nil, wrapErr("decode proposals", err)
	}
	return proposals, nil
}

func (m *Mongo) ListProposalsByFreelancer(ctx context.Context, freelancerID string) ([]models.Proposal, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	cursor, err := db.ProposalsCollection.Find(ctx,
		bson.M{"freelancerId": freelancerID},
		options.Find().SetSort(bson.M{"submittedAt": -1}),
	)
	if err != nil {
		return nil, wrapErr("list proposals", err)
	}
	defer cursor.Close(ctx)

	var proposals []models.Proposal
	if err := cursor.All(ctx, &proposals); err != nil {
		return nil, wrapErr("decode proposals", err)
	}
	return proposals, nil
}

// ---------- escrow ----------

func (m *Mongo) GetEscrow(ctx context.Context, contractID, jobID string) (*models.EscrowRecord, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var rec models.EscrowRecord
	err := db.EscrowCollection.FindOne(ctx, bson.M{"contractId": contractID, "jobid": jobID}).Decode(&rec)
	if err != nil {
		return nil, wrapErr("get escrow", err)
	}
	return &rec, nil
}

func (m *Mongo) GetEscrowByJob(ctx context.Context, jobID string) (*models.EscrowRecord, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var rec models.EscrowRecord
	if err := db.EscrowCollection.FindOne(ctx, bson.M{"jobid": jobID}).Decode(&rec); err != nil {
		return nil, wrapErr("get escrow", err)
	}
	return &rec, nil
}

func (m *Mongo) InsertEscrow(ctx context.Context, rec *models.EscrowRecord) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.EscrowCollection.InsertOne(ctx, rec); err != nil {
		return wrapErr("insert escrow", err)
	}
	return nil
}

// ReleaseEscrow flips the record to released and appends the release event in
// one conditional update. Returns false when the record was already released,
// which makes the release idempotency check race-safe.
func (m *Mongo) ReleaseEscrow(ctx context.Context, escrowID, releaseType string, ev models.EscrowEvent) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	res, err := db.EscrowCollection.UpdateOne(ctx,
		bson.M{"escrowid": escrowID, "status": bson.M{"$ne": models.EscrowStatusReleased}},
		bson.M{
			"$set":  bson.M{"status": models.EscrowStatusReleased, "releaseType": releaseType, "updatedAt": ev.At},
			"$push": bson.M{"events": ev},
		},
	)
	if err != nil {
		return false, wrapErr("release escrow", err)
	}
	return res.MatchedCount > 0, nil
}

// ---------- users ----------

func (m *Mongo) GetUser(ctx context.Context, userID string) (*models.User, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var u models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"userid": userID}).Decode(&u); err != nil {
		return nil, wrapErr("get user", err)
	}
	return &u, nil
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var u models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, wrapErr("get user", err)
	}
	return &u, nil
}

func (m *Mongo) InsertUser(ctx context.Context, u *models.User) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.UserCollection.InsertOne(ctx, u); err != nil {
		return wrapErr("insert user", err)
	}
	return nil
}

func (m *Mongo) UpdateUser(ctx context.Context, userID string, fields map[string]any) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err := db.UserCollection.UpdateOne(ctx, bson.M{"userid": userID}, bson.M{"$set": fields})
	if err != nil {
		return wrapErr("update user", err)
	}
	return nil
}

func (m *Mongo) IncUserTotal(ctx context.Context, userID, field string, amount float64) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err := db.UserCollection.UpdateOne(ctx, bson.M{"userid": userID}, bson.M{"$inc": bson.M{field: amount}})
	if err != nil {
		return wrapErr("inc user total", err)
	}
	return nil
}

// ---------- notifications ----------

func (m *Mongo) InsertNotification(ctx context.Context, n *models.Notification) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.NotificationCollection.InsertOne(ctx, n); err != nil {
		return wrapErr("insert notification", err)
	}
	return nil
}

func (m *Mongo) ListNotifications(ctx context.Context, userID string, skip, limit int64) ([]models.Notification, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.M{"createdAt": -1})
	cursor, err := db.NotificationCollection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, wrapErr("list notifications", err)
	}
	defer cursor.Close(ctx)

	var out []models.Notification
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapErr("decode notifications", err)
	}
	return out, nil
}

func (m *Mongo) MarkNotificationRead(ctx context.Context, notificationID, userID string) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	res, err := db.NotificationCollection.UpdateOne(ctx,
		bson.M{"notificationid": notificationID, "userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return false, wrapErr("mark notification read", err)
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	n, err := db.NotificationCollection.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
	if err != nil {
		return 0, wrapErr("count unread", err)
	}
	return n, nil
}

// ---------- conversations / messages ----------

func (m *Mongo) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var c models.Conversation
	if err := db.ConversationCollection.FindOne(ctx, bson.M{"conversationid": conversationID}).Decode(&c); err != nil {
		return nil, wrapErr("get conversation", err)
	}
	return &c, nil
}

func (m *Mongo) GetConversationByKey(ctx context.Context, key string) (*models.Conversation, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var c models.Conversation
	if err := db.ConversationCollection.FindOne(ctx, bson.M{"key": key}).Decode(&c); err != nil {
		return nil, wrapErr("get conversation", err)
	}
	return &c, nil
}

func (m *Mongo) InsertConversation(ctx context.Context, c *models.Conversation) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.ConversationCollection.InsertOne(ctx, c); err != nil {
		return wrapErr("insert conversation", err)
	}
	return nil
}

func (m *Mongo) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"lastMessageAt": -1})
	cursor, err := db.ConversationCollection.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, wrapErr("list conversations", err)
	}
	defer cursor.Close(ctx)

	var out []models.Conversation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapErr("decode conversations", err)
	}
	return out, nil
}

// TouchConversation refreshes the lastMessage preview.
func (m *Mongo) TouchConversation(ctx context.Context, conversationID, preview string, at time.Time) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	_, err := db.ConversationCollection.UpdateOne(ctx,
		bson.M{"conversationid": conversationID},
		bson.M{"$set": bson.M{"lastMessage": preview, "lastMessageAt": at}},
	)
	if err != nil {
		return wrapErr("touch conversation", err)
	}
	return nil
}

func (m *Mongo) InsertMessage(ctx context.Context, msg *models.Message) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.MessagesCollection.InsertOne(ctx, msg); err != nil {
		return wrapErr("insert message", err)
	}
	return nil
}

func (m *Mongo) ListMessages(ctx context.Context, conversationID string, skip, limit int64) ([]models.Message, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.M{"createdAt": 1})
	cursor, err := db.MessagesCollection.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, wrapErr("list messages", err)
	}
	defer cursor.Close(ctx)

	var out []models.Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapErr("decode messages", err)
	}
	return out, nil
}

// ---------- orders ----------

func (m *Mongo) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var o models.Order
	if err := db.OrdersCollection.FindOne(ctx, bson.M{"orderid": orderID}).Decode(&o); err != nil {
		return nil, wrapErr("get order", err)
	}
	return &o, nil
}

func (m *Mongo) InsertOrder(ctx context.Context, o *models.Order) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.OrdersCollection.InsertOne(ctx, o); err != nil {
		return wrapErr("insert order", err)
	}
	return nil
}

func (m *Mongo) UpdateOrderIfStatus(ctx context.Context, orderID string, prev []string, fields map[string]any) (bool, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	res, err := db.OrdersCollection.UpdateOne(ctx,
		bson.M{"orderid": orderID, "status": bson.M{"$in": prev}},
		bson.M{"$set": fields},
	)
	if err != nil {
		return false, wrapErr("update order", err)
	}
	return res.MatchedCount > 0, nil
}

func (m *Mongo) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": -1})
	cursor, err := db.OrdersCollection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, wrapErr("list orders", err)
	}
	defer cursor.Close(ctx)

	var out []models.Order
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapErr("decode orders", err)
	}
	return out, nil
}

// ---------- reviews / portfolio ----------

func (m *Mongo) InsertReview(ctx context.Context, rev *models.Review) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.ReviewsCollection.InsertOne(ctx, rev); err != nil {
		return wrapErr("insert review", err)
	}
	return nil
}

func (m *Mongo) ListReviewsByUser(ctx context.Context, revieweeID string, skip, limit int64) ([]models.Review, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.M{"createdAt": -1})
	cursor, err := db.ReviewsCollection.Find(ctx, bson.M{"revieweeId": revieweeID}, opts)
	if err != nil {
		return nil, wrapErr("list reviews", err)
	}
	defer cursor.Close(ctx)

	var out []models.Review
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapErr("decode reviews", err)
	}
	return out, nil
}

func (m *Mongo) InsertPortfolioEntry(ctx context.Context, entry *models.PortfolioEntry) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := db.PortfolioCollection.InsertOne(ctx, entry); err != nil {
		return wrapErr("insert portfolio entry", err)
	}
	return nil
}

func (m *Mongo) ListPortfolioByUser(ctx context.Context, freelancerID string, skip, limit int64) ([]models.PortfolioEntry, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	opts := options.Find().SetSkip(skip).SetLimit(limit).SetSort(bson.M{"completedAt": -1})
	cursor, err := db.PortfolioCollection.Find(ctx, bson.M{"freelancerId": freelancerID}, opts)
	if err != nil {
		return nil, wrapErr("list portfolio", err)
	}
	defer cursor.Close(ctx)

	var out []models.PortfolioEntry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, wrapErr("decode portfolio", err)
	}
	return out, nil
}
