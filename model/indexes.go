package model

import (
	"context"
	"fmt"

	"github.com/evergreen-ci/perffarm"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SystemIndexes holds the keys, options and the collection for an index.
// See
// https://docs.mongodb.com/manual/reference/method/db.collection.createIndex
// for more info.
type SystemIndexes struct {
	Keys       bson.D
	Unique     bool
	Collection string
}

// GetRequiredIndexes returns required indexes for the database.
func GetRequiredIndexes() []SystemIndexes {
	return []SystemIndexes{
		{
			Keys: bson.D{
				{Key: testResultTestIDKey, Value: 1},
				{Key: testResultBranchKey, Value: 1},
				{Key: testResultTimestampKey, Value: 1},
			},
			Collection: testResultsCollection,
		},
		{
			Keys:       bson.D{{Key: testResultTestIDKey, Value: 1}, {Key: testResultSequenceKey, Value: 1}},
			Collection: testResultsCollection,
		},
		{
			Keys:       bson.D{{Key: testResultPlantKey, Value: 1}},
			Collection: testResultsCollection,
		},
		{
			Keys: bson.D{
				{Key: testResultTestIDKey, Value: 1},
				{Key: testResultPlantKey, Value: 1},
				{Key: testResultBranchKey, Value: 1},
				{Key: testResultBuildNumberKey, Value: 1},
			},
			Unique:     true,
			Collection: testResultsCollection,
		},
		{
			Keys:       bson.D{{Key: branchPositionKey, Value: 1}},
			Collection: branchesCollection,
		},
	}
}

// EnsureIndexes creates the required indexes that do not already exist.
func EnsureIndexes(ctx context.Context, env perffarm.Environment) error {
	database := env.GetDB()
	catcher := grip.NewBasicCatcher()
	for _, idx := range GetRequiredIndexes() {
		im := mongo.IndexModel{Keys: idx.Keys}
		if idx.Unique {
			im.Options = options.Index().SetUnique(true)
		}

		name, err := database.Collection(idx.Collection).Indexes().CreateOne(ctx, im)
		if err != nil {
			catcher.Wrapf(err, "problem creating index on '%s'", idx.Collection)
			continue
		}
		grip.Debug(message.Fields{
			"message":    "ensured index",
			"collection": idx.Collection,
			"index":      name,
		})
	}

	return catcher.Resolve()
}

// CheckIndexes returns an error if any of the required indexes is missing
// from the database.
func CheckIndexes(ctx context.Context, database *mongo.Database, required []SystemIndexes) error {
	present := map[string][]bson.D{}
	catcher := grip.NewBasicCatcher()
	for _, idx := range required {
		if _, ok := present[idx.Collection]; ok {
			continue
		}

		cur, err := database.Collection(idx.Collection).Indexes().List(ctx)
		if err != nil {
			catcher.Wrapf(err, "problem listing indexes for '%s'", idx.Collection)
			present[idx.Collection] = nil
			continue
		}
		specs := []struct {
			Key bson.D `bson:"key"`
		}{}
		if err = cur.All(ctx, &specs); err != nil {
			catcher.Wrapf(err, "problem decoding indexes for '%s'", idx.Collection)
			present[idx.Collection] = nil
			continue
		}
		for _, spec := range specs {
			present[idx.Collection] = append(present[idx.Collection], spec.Key)
		}
	}

	for _, idx := range required {
		found := false
		for _, keys := range present[idx.Collection] {
			if indexKeysEqual(idx.Keys, keys) {
				found = true
				break
			}
		}
		catcher.ErrorfWhen(!found, "missing index %v on collection '%s'", idx.Keys, idx.Collection)
	}

	return catcher.Resolve()
}

func indexKeysEqual(a, b bson.D) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key {
			return false
		}
		if fmt.Sprint(indexDirection(a[i].Value)) != fmt.Sprint(indexDirection(b[i].Value)) {
			return false
		}
	}
	return true
}

func indexDirection(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return v
	}
}
