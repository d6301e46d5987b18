package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection         *mongo.Collection
	JobsCollection         *mongo.Collection
	ProposalsCollection    *mongo.Collection
	EscrowCollection       *mongo.Collection
	NotificationCollection *mongo.Collection
	ConversationCollection *mongo.Collection
	MessagesCollection     *mongo.Collection
	OrdersCollection       *mongo.Collection
	ReviewsCollection      *mongo.Collection
	PortfolioCollection    *mongo.Collection
	IdempotencyCollection  *mongo.Collection
	Client                 *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGODB_DB")
	if dbName == "" {
		dbName = "lancehub"
	}

	var err error
	clientOptions := options.Client().ApplyURI(uri)
	Client, err = mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database(dbName)
	UserCollection = database.Collection("users")
	JobsCollection = database.Collection("jobs")
	ProposalsCollection = database.Collection("proposals")
	EscrowCollection = database.Collection("escrows")
	NotificationCollection = database.Collection("notifications")
	ConversationCollection = database.Collection("conversations")
	MessagesCollection = database.Collection("messages")
	OrdersCollection = database.Collection("orders")
	ReviewsCollection = database.Collection("reviews")
	PortfolioCollection = database.Collection("portfolio")
	IdempotencyCollection = database.Collection("idempotency")
}
