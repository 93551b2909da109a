package perffarm

import (
	"os"
	"path/filepath"
	"time"

	"github.com/evergreen-ci/perffarm/util"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Configuration defines the process-level settings for the service. Values
// may be loaded from a YAML file and overridden by command line flags.
type Configuration struct {
	MongoDBURI         string        `bson:"mongodb_uri" json:"mongodb_uri" yaml:"mongodb_uri"`
	DatabaseName       string        `bson:"database_name" json:"database_name" yaml:"database_name"`
	MongoDBDialTimeout time.Duration `bson:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout"`
	SocketTimeout      time.Duration `bson:"socket_timeout" json:"socket_timeout" yaml:"socket_timeout"`
	NumWorkers         int           `bson:"num_workers" json:"num_workers" yaml:"num_workers"`
	DisableCache       bool          `bson:"disable_cache" json:"disable_cache" yaml:"disable_cache"`
	FixturesPath       string        `bson:"fixtures_path" json:"fixtures_path" yaml:"fixtures_path"`

	Bucket  BucketConfig  `bson:"bucket" json:"bucket" yaml:"bucket"`
	Service ServiceConfig `bson:"service" json:"service" yaml:"service"`
}

// BucketConfig describes the blob storage used for exported snapshots.
type BucketConfig struct {
	Type   string `bson:"type" json:"type" yaml:"type"`
	Name   string `bson:"name" json:"name" yaml:"name"`
	Prefix string `bson:"prefix" json:"prefix" yaml:"prefix"`
	Region string `bson:"region" json:"region" yaml:"region"`
}

// ServiceConfig holds the settings for the network facing services.
type ServiceConfig struct {
	Port        int      `bson:"port" json:"port" yaml:"port"`
	Prefix      string   `bson:"prefix" json:"prefix" yaml:"prefix"`
	RPCAddress  string   `bson:"rpc_address" json:"rpc_address" yaml:"rpc_address"`
	CORSOrigins []string `bson:"cors_origins" json:"cors_origins" yaml:"cors_origins"`
	DisableRPC  bool     `bson:"disable_rpc" json:"disable_rpc" yaml:"disable_rpc"`
}

// Validate checks the required fields and populates defaults for the
// optional ones.
func (c *Configuration) Validate() error {
	catcher := grip.NewBasicCatcher()

	if c.MongoDBURI == "" {
		catcher.New("must specify a mongodb url")
	}
	if c.DatabaseName == "" {
		catcher.New("must specify a database name")
	}
	if c.NumWorkers < 1 {
		catcher.New("must specify a valid number of amboy workers")
	}
	if c.MongoDBDialTimeout <= 0 {
		c.MongoDBDialTimeout = DefaultDialTimeout
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = DefaultSocketTimeout
	}
	if c.Service.Port == 0 {
		c.Service.Port = DefaultServicePort
	}
	if c.Service.Port < 0 || c.Service.Port > 65535 {
		catcher.Errorf("port %d is not valid", c.Service.Port)
	}
	if c.Service.RPCAddress == "" {
		c.Service.RPCAddress = DefaultRPCAddress
	}
	if c.Service.Prefix == "" {
		c.Service.Prefix = "rest"
	}
	if c.Bucket.Type == "" {
		c.Bucket.Type = "local"
	}
	if c.Bucket.Name == "" && c.Bucket.Type == "local" {
		c.Bucket.Name = filepath.Join(os.TempDir(), "perffarm-snapshots")
	}
	if c.Bucket.Name == "" && c.Bucket.Type != "local" {
		catcher.Errorf("must specify a bucket name for '%s' buckets", c.Bucket.Type)
	}

	return catcher.Resolve()
}

// LoadConfiguration reads a YAML configuration file. The result is not
// validated.
func LoadConfiguration(path string) (*Configuration, error) {
	conf := &Configuration{}
	if err := util.ReadFileYAML(path, conf); err != nil {
		return nil, errors.Wrapf(err, "problem loading configuration from '%s'", path)
	}

	return conf, nil
}
