package perffarm

import (
	"context"
	"sync"
	"time"

	"github.com/mongodb/amboy"
	"github.com/mongodb/amboy/queue"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const referenceCacheTTL = 5 * time.Minute

var (
	globalEnv      Environment
	globalEnvMutex sync.RWMutex
)

// GetEnvironment returns the process-wide environment. It is nil until
// SetEnvironment is called.
func GetEnvironment() Environment {
	globalEnvMutex.RLock()
	defer globalEnvMutex.RUnlock()

	return globalEnv
}

// SetEnvironment replaces the process-wide environment.
func SetEnvironment(env Environment) {
	globalEnvMutex.Lock()
	defer globalEnvMutex.Unlock()

	globalEnv = env
}

// Environment objects provide access to shared configuration and state, in a
// way that you can isolate and test for.
type Environment interface {
	GetConf() *Configuration

	// Context returns a context derived from the environment's root
	// context. The root context is canceled when the environment closes.
	Context() (context.Context, context.CancelFunc)

	GetClient() *mongo.Client
	GetDB() *mongo.Database

	// GetQueue retrieves the application's shared queue, which is cached
	// for easy access from within units, requests, and command line
	// operations.
	GetQueue() amboy.Queue
	// SetQueue replaces the shared queue. The previous queue is not
	// closed.
	SetQueue(amboy.Queue) error

	// GetCache returns the reference data cache; the second value is
	// false when caching is disabled.
	GetCache() (EnvironmentCache, bool)

	// RegisterCloser adds a function that runs when the environment
	// closes. Closers run in reverse order of registration.
	RegisterCloser(string, func(context.Context) error)
	Close(context.Context) error
}

type closerOp struct {
	name   string
	closer func(context.Context) error
}

type envState struct {
	name    string
	ctx     context.Context
	cancel  context.CancelFunc
	conf    *Configuration
	client  *mongo.Client
	queue   amboy.Queue
	cache   *envCache
	closers []closerOp
	mutex   sync.RWMutex
}

// NewEnvironment validates the configuration, connects to the database, and
// starts the local job queue.
func NewEnvironment(ctx context.Context, name string, conf *Configuration) (Environment, error) {
	if conf == nil {
		return nil, errors.New("must specify a configuration")
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	env := &envState{
		name: name,
		conf: conf,
	}
	env.ctx, env.cancel = context.WithCancel(ctx)

	var err error
	opts := options.Client().
		ApplyURI(conf.MongoDBURI).
		SetConnectTimeout(conf.MongoDBDialTimeout).
		SetServerSelectionTimeout(conf.MongoDBDialTimeout).
		SetSocketTimeout(conf.SocketTimeout)
	env.client, err = mongo.Connect(env.ctx, opts)
	if err != nil {
		env.cancel()
		return nil, errors.Wrapf(err, "problem connecting to '%s'", conf.MongoDBURI)
	}

	pingCtx, pingCancel := context.WithTimeout(env.ctx, conf.MongoDBDialTimeout)
	defer pingCancel()
	if err = env.client.Ping(pingCtx, readpref.Primary()); err != nil {
		catcher := grip.NewBasicCatcher()
		catcher.Wrapf(err, "could not reach database at '%s'", conf.MongoDBURI)
		catcher.Add(env.client.Disconnect(ctx))
		env.cancel()
		return nil, catcher.Resolve()
	}

	env.RegisterCloser("database-client", func(ctx context.Context) error {
		return errors.WithStack(env.client.Disconnect(ctx))
	})

	if !conf.DisableCache {
		env.cache = newEnvironmentCache(referenceCacheTTL)
	}

	q := queue.NewLocalLimitedSize(conf.NumWorkers, DefaultQueueSize)
	if err = q.Start(env.ctx); err != nil {
		catcher := grip.NewBasicCatcher()
		catcher.Wrap(err, "problem starting the local queue")
		catcher.Add(env.Close(ctx))
		return nil, catcher.Resolve()
	}
	env.queue = q
	env.RegisterCloser("local-queue", func(ctx context.Context) error {
		if !amboy.WaitInterval(ctx, q, 100*time.Millisecond) {
			return errors.New("timed out waiting for queued jobs to complete")
		}
		return nil
	})

	grip.Info(message.Fields{
		"message":  "configured environment",
		"name":     name,
		"database": conf.DatabaseName,
		"workers":  conf.NumWorkers,
		"cache":    !conf.DisableCache,
	})

	return env, nil
}

func (e *envState) GetConf() *Configuration {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.conf
}

func (e *envState) Context() (context.Context, context.CancelFunc) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return context.WithCancel(e.ctx)
}

func (e *envState) GetClient() *mongo.Client {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.client
}

func (e *envState) GetDB() *mongo.Database {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if e.client == nil {
		return nil
	}

	return e.client.Database(e.conf.DatabaseName)
}

func (e *envState) GetQueue() amboy.Queue {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	return e.queue
}

func (e *envState) SetQueue(q amboy.Queue) error {
	if q == nil {
		return errors.New("cannot set queue to nil")
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.queue = q
	grip.Noticef("caching a '%T' queue in the '%s' environment for use in tasks", q, e.name)
	return nil
}

func (e *envState) GetCache() (EnvironmentCache, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if e.cache == nil {
		return nil, false
	}

	return e.cache, true
}

func (e *envState) RegisterCloser(name string, closer func(context.Context) error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.closers = append(e.closers, closerOp{name: name, closer: closer})
}

func (e *envState) Close(ctx context.Context) error {
	e.mutex.Lock()
	closers := e.closers
	e.closers = nil
	e.mutex.Unlock()

	catcher := grip.NewBasicCatcher()
	for i := len(closers) - 1; i >= 0; i-- {
		op := closers[i]
		if err := op.closer(ctx); err != nil {
			catcher.Wrapf(err, "problem running closer '%s'", op.name)
			continue
		}
		grip.Debug(message.Fields{
			"message": "ran closer",
			"closer":  op.name,
			"env":     e.name,
		})
	}

	if e.cancel != nil {
		e.cancel()
	}

	return catcher.Resolve()
}
