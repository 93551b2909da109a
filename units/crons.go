package units

import (
	"context"
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/amboy"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const tsFormat = "2006-01-02.15-04-05"

// StartCrons schedules the periodic background jobs on the environment's
// queue.
func StartCrons(ctx context.Context, env perffarm.Environment) error {
	if env == nil {
		return errors.New("cannot start crons without an environment")
	}

	opts := amboy.QueueOperationConfig{
		ContinueOnError: true,
		LogErrors:       false,
		DebugLogging:    false,
	}

	queue := env.GetQueue()
	if queue == nil {
		return errors.New("environment has no queue")
	}

	grip.Info(message.Fields{
		"message": "starting background cron jobs",
		"opts":    opts,
		"started": queue.Info().Started,
		"stats":   queue.Stats(ctx),
	})

	amboy.IntervalQueueOperation(ctx, queue, time.Minute, time.Now(), opts, func(ctx context.Context, queue amboy.Queue) error {
		return queue.Put(ctx, NewStatsCollector(env, utility.RoundPartOfMinute(0).Format(tsFormat)))
	})
	amboy.IntervalQueueOperation(ctx, queue, time.Hour, time.Now(), opts, func(ctx context.Context, queue amboy.Queue) error {
		return queue.Put(ctx, NewPlantResultCountsJob(env, utility.RoundPartOfHour(0).Format(tsFormat)))
	})

	return nil
}
