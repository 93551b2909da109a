package model

import (
	"context"

	"github.com/evergreen-ci/perffarm"
	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/anser/db"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const plantsCollection = "plants"

// Plant is a named host that runs performance tests.
type Plant struct {
	Name        string `bson:"_id" json:"name" yaml:"name"`
	Admin       string `bson:"admin" json:"admin" yaml:"admin"`
	Host        string `bson:"host" json:"host" yaml:"host"`
	ResultCount int    `bson:"result_count" json:"result_count" yaml:"result_count"`

	env       perffarm.Environment
	populated bool
}

var (
	plantNameKey        = bsonutil.MustHaveTag(Plant{}, "Name")
	plantAdminKey       = bsonutil.MustHaveTag(Plant{}, "Admin")
	plantHostKey        = bsonutil.MustHaveTag(Plant{}, "Host")
	plantResultCountKey = bsonutil.MustHaveTag(Plant{}, "ResultCount")
)

// CreatePlant is the entry point for creating a new Plant.
func CreatePlant(name, admin, host string) *Plant {
	return &Plant{
		Name:      name,
		Admin:     admin,
		Host:      host,
		populated: true,
	}
}

func (p *Plant) Setup(e perffarm.Environment) { p.env = e }
func (p *Plant) IsNil() bool                  { return !p.populated }

// Find searches the database for the Plant by name.
func (p *Plant) Find(ctx context.Context) error {
	if p.env == nil {
		return errors.New("cannot find with a nil environment")
	}
	if p.Name == "" {
		return errors.New("cannot find a plant without a name")
	}

	p.populated = false
	err := p.env.GetDB().Collection(plantsCollection).FindOne(ctx, bson.M{plantNameKey: p.Name}).Decode(p)
	if db.ResultsNotFound(err) {
		return errors.Wrapf(err, "could not find plant '%s'", p.Name)
	} else if err != nil {
		return errors.Wrapf(err, "problem finding plant '%s'", p.Name)
	}
	p.populated = true

	return nil
}

// Save upserts the plant's reference data. The result count is owned by the
// recount job and is not changed by Save.
func (p *Plant) Save(ctx context.Context) error {
	if !p.populated {
		return errors.New("cannot save unpopulated plant")
	}
	if p.env == nil {
		return errors.New("cannot save with a nil environment")
	}
	if p.Name == "" {
		return errors.New("cannot save a plant without a name")
	}

	updateResult, err := p.env.GetDB().Collection(plantsCollection).UpdateOne(
		ctx,
		bson.M{plantNameKey: p.Name},
		bson.M{
			"$set": bson.M{
				plantAdminKey: p.Admin,
				plantHostKey:  p.Host,
			},
			"$setOnInsert": bson.M{plantResultCountKey: p.ResultCount},
		},
		options.Update().SetUpsert(true),
	)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   plantsCollection,
		"name":         p.Name,
		"updateResult": updateResult,
		"op":           "save plant",
	})

	return errors.Wrapf(err, "problem saving plant '%s'", p.Name)
}

// Remove deletes the plant from the database.
func (p *Plant) Remove(ctx context.Context) error {
	if p.env == nil {
		return errors.New("cannot remove with a nil environment")
	}

	_, err := p.env.GetDB().Collection(plantsCollection).DeleteOne(ctx, bson.M{plantNameKey: p.Name})
	return errors.Wrapf(err, "problem removing plant '%s'", p.Name)
}

// FindPlants returns all plants ordered by name.
func FindPlants(ctx context.Context, env perffarm.Environment) ([]Plant, error) {
	opts := options.Find().SetSort(bson.D{{Key: plantNameKey, Value: 1}})
	cur, err := env.GetDB().Collection(plantsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "problem finding plants")
	}

	plants := []Plant{}
	if err = cur.All(ctx, &plants); err != nil {
		return nil, errors.Wrap(err, "problem decoding plants")
	}
	for i := range plants {
		plants[i].env = env
		plants[i].populated = true
	}

	return plants, nil
}

// UpdatePlantResultCounts recomputes the result count of every plant from
// the stored results. Plants without results are set to zero.
func UpdatePlantResultCounts(ctx context.Context, env perffarm.Environment) (map[string]int, error) {
	counts, err := CountResultsByPlant(ctx, env)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	plants, err := FindPlants(ctx, env)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	catcher := grip.NewBasicCatcher()
	updated := make(map[string]int, len(plants))
	for _, p := range plants {
		count := counts[p.Name]
		if count == p.ResultCount {
			updated[p.Name] = count
			continue
		}

		_, err = env.GetDB().Collection(plantsCollection).UpdateOne(ctx,
			bson.M{plantNameKey: p.Name},
			bson.M{"$set": bson.M{plantResultCountKey: count}},
		)
		if err != nil {
			catcher.Wrapf(err, "problem updating result count for plant '%s'", p.Name)
			continue
		}
		updated[p.Name] = count
	}

	grip.Info(message.Fields{
		"message": "updated plant result counts",
		"counts":  updated,
		"errors":  catcher.HasErrors(),
	})

	return updated, catcher.Resolve()
}
