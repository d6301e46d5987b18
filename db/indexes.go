package db

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateIndexes sets up the uniqueness and TTL indexes the workflows rely on.
// Called once at startup; safe to re-run. A failure on one collection does
// not stop the others from being created.
func CreateIndexes(ctx context.Context) error {
	var errs []error

	// one non-withdrawn proposal per (job, freelancer); partial filters
	// only allow $in, not $ne, so the live statuses are enumerated
	_, err := ProposalsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "jobid", Value: 1}, {Key: "freelancerId", Value: 1}},
		Options: options.Index().
			SetName("job_freelancer_active").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": bson.M{"$in": []string{"pending", "accepted", "rejected"}}}),
	})
	if err != nil {
		log.Printf("index job_freelancer_active: %v", err)
		errs = append(errs, err)
	}

	_, err = EscrowCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "contractId", Value: 1}, {Key: "jobid", Value: 1}},
		Options: options.Index().SetName("contract_job").SetUnique(true),
	})
	if err != nil {
		log.Printf("index contract_job: %v", err)
		errs = append(errs, err)
	}

	_, err = ConversationCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "key", Value: 1}},
		Options: options.Index().
			SetName("conversation_key").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"key": bson.M{"$exists": true}}),
	})
	if err != nil {
		log.Printf("index conversation_key: %v", err)
		errs = append(errs, err)
	}

	idxs := []mongo.IndexModel{
		{
			Keys:    bson.M{"key": 1},
			Options: options.Index().SetUnique(true).SetName("unique_key"),
		},
		{
			Keys:    bson.M{"expires_at": 1},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_expires_at"),
		},
	}
	if _, err = IdempotencyCollection.Indexes().CreateMany(ctx, idxs); err != nil {
		log.Printf("index idempotency: %v", err)
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
