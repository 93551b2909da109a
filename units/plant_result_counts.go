package units

import (
	"context"
	"fmt"

	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/model"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const plantResultCountsJobName = "plant-result-counts"

type plantResultCountsJob struct {
	job.Base `bson:"metadata" json:"metadata" yaml:"metadata"`
	Counts   map[string]int `bson:"counts" json:"counts" yaml:"counts"`

	env perffarm.Environment
}

func init() {
	registry.AddJobType(plantResultCountsJobName, func() amboy.Job { return makePlantResultCountsJob() })
}

func makePlantResultCountsJob() *plantResultCountsJob {
	j := &plantResultCountsJob{
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    plantResultCountsJobName,
				Version: 0,
			},
		},
		env: perffarm.GetEnvironment(),
	}
	j.SetDependency(dependency.NewAlways())
	return j
}

// NewPlantResultCountsJob returns a job that recomputes every plant's result
// count from the stored results.
func NewPlantResultCountsJob(env perffarm.Environment, id string) amboy.Job {
	j := makePlantResultCountsJob()
	j.SetID(fmt.Sprintf("%s.%s", plantResultCountsJobName, id))
	j.env = env
	return j
}

func (j *plantResultCountsJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = perffarm.GetEnvironment()
	}
	if j.env == nil {
		j.AddError(errors.New("cannot count results without an environment"))
		return
	}

	counts, err := model.UpdatePlantResultCounts(ctx, j.env)
	j.Counts = counts
	if cache, ok := j.env.GetCache(); ok {
		cache.Delete(perffarm.PlantsCacheKey)
	}
	if err != nil {
		j.AddError(errors.Wrap(err, "updating plant result counts"))
		return
	}

	grip.Debug(message.Fields{
		"job_id":  j.ID(),
		"message": plantResultCountsJobName,
		"plants":  len(counts),
	})
}
