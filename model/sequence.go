package model

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sequenceCollection = "sequences"

type sequenceDocument struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// nextSequence atomically increments and returns the named counter.
func nextSequence(ctx context.Context, database *mongo.Database, name string) (int64, error) {
	doc := sequenceDocument{}
	err := database.Collection(sequenceCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, errors.Wrapf(err, "problem incrementing sequence '%s'", name)
	}

	return doc.Value, nil
}
