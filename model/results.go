package model

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/mongodb/anser/bsonutil"
	"github.com/mongodb/anser/db"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const testResultsCollection = "test_results"

// TestResult is a single performance score recorded by a plant for one build
// of a branch. Results are immutable once saved: they can be created, found,
// and removed, but never updated.
type TestResult struct {
	ID          string    `bson:"_id" json:"id" yaml:"id,omitempty"`
	TestID      string    `bson:"test_id" json:"test_id" yaml:"test_id"`
	BuildNumber int       `bson:"build_number" json:"build_number" yaml:"build_number"`
	Plant       string    `bson:"plant" json:"plant" yaml:"plant"`
	Branch      string    `bson:"branch" json:"branch" yaml:"branch"`
	Revision    string    `bson:"revision" json:"revision" yaml:"revision"`
	Metric      float64   `bson:"metric" json:"metric" yaml:"metric"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp" yaml:"timestamp"`
	Description string    `bson:"description" json:"description" yaml:"description"`
	Sequence    int64     `bson:"seq" json:"seq" yaml:"seq,omitempty"`

	env       perffarm.Environment
	populated bool
}

var (
	testResultIDKey          = bsonutil.MustHaveTag(TestResult{}, "ID")
	testResultTestIDKey      = bsonutil.MustHaveTag(TestResult{}, "TestID")
	testResultBuildNumberKey = bsonutil.MustHaveTag(TestResult{}, "BuildNumber")
	testResultPlantKey       = bsonutil.MustHaveTag(TestResult{}, "Plant")
	testResultBranchKey      = bsonutil.MustHaveTag(TestResult{}, "Branch")
	testResultTimestampKey   = bsonutil.MustHaveTag(TestResult{}, "Timestamp")
	testResultSequenceKey    = bsonutil.MustHaveTag(TestResult{}, "Sequence")
)

// CreateTestResult is the entry point for creating a new TestResult. The ID
// is derived from the test, plant, branch, and build number.
func CreateTestResult(testID, plant, branch string, buildNumber int, revision string, metric float64, ts time.Time, description string) (*TestResult, error) {
	r := &TestResult{
		TestID:      testID,
		BuildNumber: buildNumber,
		Plant:       plant,
		Branch:      branch,
		Revision:    revision,
		Metric:      metric,
		Timestamp:   ts.UTC(),
		Description: description,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	r.ID = r.computeID()
	r.populated = true

	return r, nil
}

// TestResultID returns the deterministic ID of a result. Fields are
// NUL-terminated so that adjacent fields cannot run into each other.
func TestResultID(testID, plant, branch string, buildNumber int) string {
	hash := sha1.New()
	for _, field := range []string{testID, plant, branch, strconv.Itoa(buildNumber)} {
		_, _ = io.WriteString(hash, field)
		_, _ = io.WriteString(hash, "\x00")
	}

	return fmt.Sprintf("%x", hash.Sum(nil))
}

func (r *TestResult) computeID() string {
	return TestResultID(r.TestID, r.Plant, r.Branch, r.BuildNumber)
}

// Validate checks that the fields identifying the result are set.
func (r *TestResult) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(r.TestID == "", "test id must not be empty")
	catcher.NewWhen(r.Plant == "", "plant must not be empty")
	catcher.NewWhen(r.Branch == "", "branch must not be empty")
	catcher.NewWhen(r.BuildNumber <= 0, "build number must be positive")
	catcher.NewWhen(r.Timestamp.IsZero(), "timestamp must not be zero")

	return catcher.Resolve()
}

// Setup sets the environment. The environment is required for numerous
// functions on TestResult.
func (r *TestResult) Setup(e perffarm.Environment) { r.env = e }

// IsNil returns if the TestResult is populated or not.
func (r *TestResult) IsNil() bool { return !r.populated }

// Find searches the database for the TestResult by ID.
func (r *TestResult) Find(ctx context.Context) error {
	if r.env == nil {
		return errors.New("cannot find with a nil environment")
	}

	if r.ID == "" {
		r.ID = r.computeID()
	}

	r.populated = false
	err := r.env.GetDB().Collection(testResultsCollection).FindOne(ctx, bson.M{testResultIDKey: r.ID}).Decode(r)
	if db.ResultsNotFound(err) {
		return errors.Wrapf(err, "could not find test result record '%s'", r.ID)
	} else if err != nil {
		return errors.Wrapf(err, "problem finding test result record '%s'", r.ID)
	}
	r.populated = true

	return nil
}

// SaveNew inserts the TestResult, assigning it the next insertion sequence
// number. Saving a result whose ID already exists is an error.
func (r *TestResult) SaveNew(ctx context.Context) error {
	if !r.populated {
		return errors.New("cannot save unpopulated test result")
	}
	if r.env == nil {
		return errors.New("cannot save with a nil environment")
	}

	if r.ID == "" {
		r.ID = r.computeID()
	}

	seq, err := nextSequence(ctx, r.env.GetDB(), testResultsCollection)
	if err != nil {
		return errors.Wrap(err, "problem assigning insertion sequence")
	}
	r.Sequence = seq

	insertResult, err := r.env.GetDB().Collection(testResultsCollection).InsertOne(ctx, r)
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   testResultsCollection,
		"id":           r.ID,
		"insertResult": insertResult,
		"op":           "save new test result",
	})
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(err, "test result '%s' already exists", r.ID)
	}

	return errors.Wrapf(err, "problem saving new test result '%s'", r.ID)
}

// Remove deletes the TestResult from the database.
func (r *TestResult) Remove(ctx context.Context) error {
	if r.env == nil {
		return errors.New("cannot remove with a nil environment")
	}

	if r.ID == "" {
		r.ID = r.computeID()
	}

	deleteResult, err := r.env.GetDB().Collection(testResultsCollection).DeleteOne(ctx, bson.M{testResultIDKey: r.ID})
	grip.DebugWhen(err == nil, message.Fields{
		"collection":   testResultsCollection,
		"id":           r.ID,
		"deleteResult": deleteResult,
		"op":           "remove test result",
	})

	return errors.Wrapf(err, "problem removing test result record '%s'", r.ID)
}

// ResultsQuery describes the set of results to fetch for one performance
// test. An empty plant matches every plant and empty branches match every
// branch.
type ResultsQuery struct {
	TestID   string   `json:"test_id"`
	Plant    string   `json:"plant,omitempty"`
	Branches []string `json:"branches,omitempty"`
}

// Validate ensures the query names a test.
func (q ResultsQuery) Validate() error {
	if q.TestID == "" {
		return errors.New("must specify a test id")
	}
	return nil
}

// Matches reports whether the result satisfies the query.
func (q ResultsQuery) Matches(r TestResult) bool {
	if r.TestID != q.TestID {
		return false
	}
	if q.Plant != "" && r.Plant != q.Plant {
		return false
	}
	if len(q.Branches) == 0 {
		return true
	}
	for _, b := range q.Branches {
		if b == r.Branch {
			return true
		}
	}
	return false
}

func (q ResultsQuery) filter() bson.M {
	filter := bson.M{testResultTestIDKey: q.TestID}
	if q.Plant != "" {
		filter[testResultPlantKey] = q.Plant
	}
	if len(q.Branches) > 0 {
		filter[testResultBranchKey] = bson.M{"$in": q.Branches}
	}
	return filter
}

// FindTestResults returns the results matching the query in insertion order.
func FindTestResults(ctx context.Context, env perffarm.Environment, query ResultsQuery) ([]TestResult, error) {
	if err := query.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid results query")
	}

	opts := options.Find().SetSort(bson.D{{Key: testResultSequenceKey, Value: 1}})
	cur, err := env.GetDB().Collection(testResultsCollection).Find(ctx, query.filter(), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "problem finding results for test '%s'", query.TestID)
	}

	results := []TestResult{}
	if err = cur.All(ctx, &results); err != nil {
		return nil, errors.Wrap(err, "problem decoding test results")
	}
	for i := range results {
		results[i].env = env
		results[i].populated = true
	}

	return results, nil
}

// CountResultsByPlant returns the number of stored results for each plant.
func CountResultsByPlant(ctx context.Context, env perffarm.Environment) (map[string]int, error) {
	pipeline := []bson.M{
		{"$group": bson.M{
			"_id":   "$" + testResultPlantKey,
			"count": bson.M{"$sum": 1},
		}},
	}

	cur, err := env.GetDB().Collection(testResultsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "problem aggregating results by plant")
	}

	out := []struct {
		Plant string `bson:"_id"`
		Count int    `bson:"count"`
	}{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "problem decoding plant result counts")
	}

	counts := make(map[string]int, len(out))
	for _, c := range out {
		counts[c.Plant] = c.Count
	}

	return counts, nil
}
