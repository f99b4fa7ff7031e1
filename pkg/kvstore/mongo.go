package kvstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoConfig configures the MongoDB client and the collection holding entries.
type MongoConfig struct {
	ConnectionURL   string        `env:"MONGODB_URL" envDefault:"mongodb://localhost:27017"` // ConnectionURL is the URL of the deployment.
	ConnectTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`           // ConnectTimeout is the timeout for connecting.
	MaxPoolSize     uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`             // MaxPoolSize is the maximum number of pooled connections.
	MinPoolSize     uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"1"`               // MinPoolSize is the minimum number of pooled connections.
	MaxConnIdleTime time.Duration `env:"MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`       // MaxConnIdleTime is how long a connection may stay idle.
	RetryAttempts   int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`              // RetryAttempts is the number of connection attempts.
	RetryInterval   time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`             // RetryInterval is the pause between attempts.
	Database        string        `env:"MONGODB_DATABASE" envDefault:"kvsync"`               // Database holds the collection.
	Collection      string        `env:"MONGODB_COLLECTION" envDefault:"kv_items"`           // Collection holds one document per key.
}

// ConnectMongo connects and pings the deployment, retrying RetryAttempts times.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Client, error) {
	for range cfg.RetryAttempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(cfg.ConnectionURL).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize).
				SetMinPoolSize(cfg.MinPoolSize).
				SetMaxConnIdleTime(cfg.MaxConnIdleTime),
		)
		if err == nil {
			if err := client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrFailedToConnectToMongo
}

// MongoHealthcheck returns a probe that pings the deployment.
func MongoHealthcheck(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// mongoCollection is the subset of *mongo.Collection the store uses.
type mongoCollection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
}

type mongoItem struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo stores one document per key, keyed by _id.
type Mongo struct {
	coll mongoCollection
}

// NewMongo wraps a collection, usually client.Database(cfg.Database).Collection(cfg.Collection).
func NewMongo(coll mongoCollection) *Mongo {
	return &Mongo{coll: coll}
}

// GetItem maps mongo.ErrNoDocuments to absence.
func (m *Mongo) GetItem(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var item mongoItem
	err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return item.Value, true, nil
}

// SetItem upserts the document for key.
func (m *Mongo) SetItem(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "value", Value: value},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	_, err := m.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: key}}, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (m *Mongo) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	return err
}
