package model

import (
	"context"
	"sort"

	"github.com/evergreen-ci/perffarm"
	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/anser/db"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const performanceTestsCollection = "performance_tests"

// TestKind classifies a performance test workload.
type TestKind string

const (
	TestKindOLTP TestKind = "OLTP"
	TestKindDSS  TestKind = "DSS"
)

func (k TestKind) Validate() error {
	switch k {
	case TestKindOLTP, TestKindDSS:
		return nil
	default:
		return errors.Errorf("invalid test kind '%s'", k)
	}
}

// PerformanceTest describes a benchmark workload. Its plants and results are
// the ones recorded against its ID.
type PerformanceTest struct {
	ID          string   `bson:"_id" json:"id" yaml:"id"`
	Name        string   `bson:"name" json:"name" yaml:"name"`
	Description string   `bson:"description" json:"description" yaml:"description"`
	Kind        TestKind `bson:"kind" json:"kind" yaml:"kind"`

	env       perffarm.Environment
	populated bool
}

var (
	performanceTestIDKey          = bsonutil.MustHaveTag(PerformanceTest{}, "ID")
	performanceTestNameKey        = bsonutil.MustHaveTag(PerformanceTest{}, "Name")
	performanceTestDescriptionKey = bsonutil.MustHaveTag(PerformanceTest{}, "Description")
	performanceTestKindKey        = bsonutil.MustHaveTag(PerformanceTest{}, "Kind")
)

// CreatePerformanceTest is the entry point for creating a new
// PerformanceTest.
func CreatePerformanceTest(id, name, description string, kind TestKind) (*PerformanceTest, error) {
	t := &PerformanceTest{
		ID:          id,
		Name:        name,
		Description: description,
		Kind:        kind,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.populated = true

	return t, nil
}

func (t *PerformanceTest) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(t.ID == "", "test id must not be empty")
	catcher.NewWhen(t.Name == "", "test name must not be empty")
	catcher.Add(t.Kind.Validate())

	return catcher.Resolve()
}

func (t *PerformanceTest) Setup(e perffarm.Environment) { t.env = e }
func (t *PerformanceTest) IsNil() bool                  { return !t.populated }

// Find searches the database for the PerformanceTest by ID.
func (t *PerformanceTest) Find(ctx context.Context) error {
	if t.env == nil {
		return errors.New("cannot find with a nil environment")
	}
	if t.ID == "" {
		return errors.New("cannot find a performance test without an id")
	}

	t.populated = false
	err := t.env.GetDB().Collection(performanceTestsCollection).FindOne(ctx, bson.M{performanceTestIDKey: t.ID}).Decode(t)
	if db.ResultsNotFound(err) {
		return errors.Wrapf(err, "could not find performance test '%s'", t.ID)
	} else if err != nil {
		return errors.Wrapf(err, "problem finding performance test '%s'", t.ID)
	}
	t.populated = true

	return nil
}

// Save upserts the performance test.
func (t *PerformanceTest) Save(ctx context.Context) error {
	if !t.populated {
		return errors.New("cannot save unpopulated performance test")
	}
	if t.env == nil {
		return errors.New("cannot save with a nil environment")
	}

	updateResult, err := t.env.GetDB().Collection(performanceTestsCollection).UpdateOne(
		ctx,
		bson.M{performanceTestIDKey: t.ID},
		bson.M{"$set": bson.M{
			performanceTestNameKey:        t.Name,
			performanceTestDescriptionKey: t.Description,
			performanceTestKindKey:        t.Kind,
		}},
		options.Update().SetUpsert(true),
	)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   performanceTestsCollection,
		"id":           t.ID,
		"updateResult": updateResult,
		"op":           "save performance test",
	})

	return errors.Wrapf(err, "problem saving performance test '%s'", t.ID)
}

// Plants returns the names of the plants that have recorded results for the
// test, in sorted order.
func (t *PerformanceTest) Plants(ctx context.Context) ([]string, error) {
	if t.env == nil {
		return nil, errors.New("cannot find plants with a nil environment")
	}

	raw, err := t.env.GetDB().Collection(testResultsCollection).Distinct(ctx, testResultPlantKey, bson.M{testResultTestIDKey: t.ID})
	if err != nil {
		return nil, errors.Wrapf(err, "problem finding plants for test '%s'", t.ID)
	}

	plants := make([]string, 0, len(raw))
	for _, p := range raw {
		if name, ok := p.(string); ok {
			plants = append(plants, name)
		}
	}
	sort.Strings(plants)

	return plants, nil
}

// Results returns every result recorded for the test in insertion order.
func (t *PerformanceTest) Results(ctx context.Context) ([]TestResult, error) {
	if t.env == nil {
		return nil, errors.New("cannot find results with a nil environment")
	}

	return FindTestResults(ctx, t.env, ResultsQuery{TestID: t.ID})
}

// FindPerformanceTests returns all performance tests ordered by ID.
func FindPerformanceTests(ctx context.Context, env perffarm.Environment) ([]PerformanceTest, error) {
	opts := options.Find().SetSort(bson.D{{Key: performanceTestIDKey, Value: 1}})
	cur, err := env.GetDB().Collection(performanceTestsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "problem finding performance tests")
	}

	tests := []PerformanceTest{}
	if err = cur.All(ctx, &tests); err != nil {
		return nil, errors.Wrap(err, "problem decoding performance tests")
	}
	for i := range tests {
		tests[i].env = env
		tests[i].populated = true
	}

	return tests, nil
}
