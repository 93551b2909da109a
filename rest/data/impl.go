package data

import (
	"github.com/evergreen-ci/perffarm"
)

// DBConnector answers REST and rpc requests from the perffarm database. The
// plant, test and branch listings are cached in the environment, and fixture
// loads and snapshot exports go to the environment's job queue.
type DBConnector struct {
	env perffarm.Environment
}

// CreateDBConnector returns the database backed Connector of the environment.
func CreateDBConnector(env perffarm.Environment) Connector {
	return &DBConnector{
		env: env,
	}
}

var (
	_ Connector = &DBConnector{}
	_ Connector = &MockConnector{}
)
