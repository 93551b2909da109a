package units

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/dashboard"
	"github.com/evergreen-ci/perffarm/model"
	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/dependency"
	"github.com/mongodb/amboy/job"
	"github.com/mongodb/amboy/registry"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const (
	exportSnapshotJobName = "export-snapshot"

	snapshotResultsKey    = "results.parquet"
	snapshotLineKey       = "line.png"
	snapshotComparisonKey = "comparison.png"
)

type exportSnapshotJob struct {
	job.Base `bson:"metadata" json:"metadata" yaml:"metadata"`
	TestID   string   `bson:"test_id" json:"test_id" yaml:"test_id"`
	Prefix   string   `bson:"prefix" json:"prefix" yaml:"prefix"`
	Files    []string `bson:"files" json:"files" yaml:"files"`

	env perffarm.Environment
}

func init() {
	registry.AddJobType(exportSnapshotJobName, func() amboy.Job { return makeExportSnapshotJob() })
}

func makeExportSnapshotJob() *exportSnapshotJob {
	j := &exportSnapshotJob{
		Base: job.Base{
			JobType: amboy.JobType{
				Name:    exportSnapshotJobName,
				Version: 0,
			},
		},
		env: perffarm.GetEnvironment(),
	}
	j.SetDependency(dependency.NewAlways())
	return j
}

// NewExportSnapshotJob returns a job that writes the results of a test as a
// parquet file, along with the default line and comparison charts, to the
// configured snapshot bucket under "<test>/<timestamp>".
func NewExportSnapshotJob(env perffarm.Environment, testID string, ts time.Time) amboy.Job {
	j := makeExportSnapshotJob()
	stamp := ts.UTC().Format(tsFormat)
	j.SetID(fmt.Sprintf("%s.%s.%s", exportSnapshotJobName, testID, stamp))
	j.env = env
	j.TestID = testID
	j.Prefix = path.Join(testID, stamp)
	return j
}

func (j *exportSnapshotJob) Run(ctx context.Context) {
	defer j.MarkComplete()

	if j.env == nil {
		j.env = perffarm.GetEnvironment()
	}
	if j.env == nil {
		j.AddError(errors.New("cannot export a snapshot without an environment"))
		return
	}
	if j.TestID == "" {
		j.AddError(errors.New("cannot export a snapshot without a test id"))
		return
	}

	records, err := model.NewDBResultsSource(j.env).FetchResults(ctx, model.ResultsQuery{TestID: j.TestID})
	if err != nil {
		j.AddError(errors.Wrapf(err, "fetching results for test '%s'", j.TestID))
		return
	}
	if len(records) == 0 {
		j.AddError(errors.Errorf("no results to export for test '%s'", j.TestID))
		return
	}

	bucket, err := model.SnapshotBucket(ctx, j.env, j.Prefix)
	if err != nil {
		j.AddError(errors.Wrap(err, "getting snapshot bucket"))
		return
	}

	buf := &bytes.Buffer{}
	if err = model.WriteResultsParquet(buf, records); err != nil {
		j.AddError(errors.Wrap(err, "writing parquet results"))
		return
	}
	if err = bucket.Put(ctx, snapshotResultsKey, buf); err != nil {
		j.AddError(errors.Wrap(err, "uploading parquet results"))
		return
	}
	j.Files = append(j.Files, snapshotResultsKey)

	data := dashboard.Derive(records, *dashboard.NewSelection(j.TestID))
	opts := dashboard.RenderOptions{Format: dashboard.ImageFormatPNG, Title: j.TestID}

	if !data.Line.IsEmpty() {
		buf = &bytes.Buffer{}
		if err = dashboard.RenderLineChart(buf, data.Line, opts); err != nil {
			j.AddError(errors.Wrap(err, "rendering line chart"))
			return
		}
		if err = bucket.Put(ctx, snapshotLineKey, buf); err != nil {
			j.AddError(errors.Wrap(err, "uploading line chart"))
			return
		}
		j.Files = append(j.Files, snapshotLineKey)
	}

	if data.Comparison.HasData() {
		buf = &bytes.Buffer{}
		if err = dashboard.RenderComparisonChart(buf, data.Comparison, opts); err != nil {
			j.AddError(errors.Wrap(err, "rendering comparison chart"))
			return
		}
		if err = bucket.Put(ctx, snapshotComparisonKey, buf); err != nil {
			j.AddError(errors.Wrap(err, "uploading comparison chart"))
			return
		}
		j.Files = append(j.Files, snapshotComparisonKey)
	}

	grip.Info(message.Fields{
		"job_id":  j.ID(),
		"message": exportSnapshotJobName,
		"test":    j.TestID,
		"prefix":  j.Prefix,
		"files":   j.Files,
		"results": len(records),
	})
}
