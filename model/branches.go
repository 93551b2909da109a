package model

import (
	"context"

	"github.com/evergreen-ci/perffarm"
	"github.com/mongodb/anser/bsonutil"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const branchesCollection = "branches"

// Branch is a source line whose builds are tracked. Position preserves the
// order in which branches are presented.
type Branch struct {
	Name     string `bson:"_id"`
	Position int    `bson:"position"`
}

var (
	branchNameKey     = bsonutil.MustHaveTag(Branch{}, "Name")
	branchPositionKey = bsonutil.MustHaveTag(Branch{}, "Position")
)

// SaveBranches upserts the known branches, keeping the given order.
func SaveBranches(ctx context.Context, env perffarm.Environment, names []string) error {
	coll := env.GetDB().Collection(branchesCollection)
	for idx, name := range names {
		if name == "" {
			return errors.New("branch name must not be empty")
		}

		_, err := coll.UpdateOne(ctx,
			bson.M{branchNameKey: name},
			bson.M{"$set": bson.M{branchPositionKey: idx}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return errors.Wrapf(err, "problem saving branch '%s'", name)
		}
	}

	return nil
}

// FindBranches returns the names of the known branches in presentation
// order.
func FindBranches(ctx context.Context, env perffarm.Environment) ([]string, error) {
	opts := options.Find().SetSort(bson.D{{Key: branchPositionKey, Value: 1}, {Key: branchNameKey, Value: 1}})
	cur, err := env.GetDB().Collection(branchesCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "problem finding branches")
	}

	branches := []Branch{}
	if err = cur.All(ctx, &branches); err != nil {
		return nil, errors.Wrap(err, "problem decoding branches")
	}

	names := make([]string, len(branches))
	for i := range branches {
		names[i] = branches[i].Name
	}

	return names, nil
}
