package units

import (
	"context"
	"fmt"

	"github.com/evergreen-ci/perffarm"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

const statsCollectorJobName = "stats-collector"

type statsCollectorJob struct {
	ExcludeQueue bool `bson:"exclude_queue" json:"exclude_queue" yaml:"exclude_queue"`
	ExcludeDB    bool `bson:"exclude_db" json:"exclude_db" yaml:"exclude_db"`
	job.Base     `bson:"metadata" json:"metadata" yaml:"metadata"`

	env perffarm.Environment
}

func init() {
	registry.AddJobType(statsCollectorJobName, func() amboy.Job { return makeStatsCollector() })
}

func makeStatsCollector() *statsCollectorJob {
	j := &statsCollectorJob{
		env: perffarm.GetEnvironment(),
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    statsCollectorJobName,
				Version: 0,
			},
		},
	}
	j.SetDependency(dependency.NewAlways())
	return j
}

// NewStatsCollector logs the stats of the environment's queue and the size
// of every collection in its database.
func NewStatsCollector(env perffarm.Environment, id string) amboy.Job {
	j := makeStatsCollector()
	j.env = env
	j.SetID(fmt.Sprintf("%s-%s", statsCollectorJobName, id))
	return j
}

func (j *statsCollectorJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = perffarm.GetEnvironment()
	}
	if j.env == nil {
		j.AddError(errors.New("cannot collect stats without an environment"))
		return
	}

	if queue := j.env.GetQueue(); !j.ExcludeQueue && queue != nil && queue.Info().Started {
		grip.Info(message.Fields{
			"message": "amboy queue stats",
			"stats":   queue.Stats(ctx),
		})
	}

	if !j.ExcludeDB {
		j.AddError(j.collectionStats(ctx))
	}
}

func (j *statsCollectorJob) collectionStats(ctx context.Context) error {
	db := j.env.GetDB()
	if db == nil {
		return errors.New("environment has no database")
	}

	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return errors.Wrap(err, "getting collection names")
	}

	for _, name := range names {
		var stats bson.M
		if err = db.RunCommand(ctx, bson.D{{Key: "collStats", Value: name}}).Decode(&stats); err != nil {
			return errors.Wrapf(err, "getting stats for collection '%s'", name)
		}
		grip.Info(message.Fields{
			"job_id":       j.ID(),
			"message":      statsCollectorJobName,
			"collection":   name,
			"count":        stats["count"],
			"storage_size": stats["storageSize"],
			"index_size":   stats["totalIndexSize"],
		})
	}

	return nil
}
