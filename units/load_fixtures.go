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

const loadFixturesJobName = "load-fixtures"

type loadFixturesJob struct {
	job.Base `bson:"metadata" json:"metadata" yaml:"metadata"`
	Path     string                 `bson:"path" json:"path" yaml:"path"`
	Stats    model.FixtureLoadStats `bson:"stats" json:"stats" yaml:"stats"`

	env perffarm.Environment
}

func init() {
	registry.AddJobType(loadFixturesJobName, func() amboy.Job { return makeLoadFixturesJob() })
}

func makeLoadFixturesJob() *loadFixturesJob {
	j := &loadFixturesJob{
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    loadFixturesJobName,
				Version: 0,
			},
		},
		env: perffarm.GetEnvironment(),
	}
	j.SetDependency(dependency.NewAlways())
	return j
}

// NewLoadFixturesJob returns a job that loads the fixture file at path into
// the database, or the built-in fixtures when path is empty. Results that
// already exist are skipped.
func NewLoadFixturesJob(env perffarm.Environment, path, id string) amboy.Job {
	j := makeLoadFixturesJob()
	j.SetID(fmt.Sprintf("%s.%s", loadFixturesJobName, id))
	j.env = env
	j.Path = path
	return j
}

func (j *loadFixturesJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = perffarm.GetEnvironment()
	}
	if j.env == nil {
		j.AddError(errors.New("cannot load fixtures without an environment"))
		return
	}

	set := model.DefaultFixtures()
	if j.Path != "" {
		var err error
		set, err = model.LoadFixtureFile(j.Path)
		if err != nil {
			j.AddError(errors.Wrapf(err, "reading fixtures from '%s'", j.Path))
			return
		}
	}

	stats, err := set.Load(ctx, j.env)
	j.Stats = stats
	if err != nil {
		j.AddError(errors.Wrap(err, "loading fixtures"))
		return
	}

	grip.Info(message.Fields{
		"job_id":  j.ID(),
		"message": loadFixturesJobName,
		"path":    j.Path,
		"stats":   stats,
	})
}
