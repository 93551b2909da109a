/*
Package perffarm holds a number of application level constants and shared
resources for the perffarm results service.
*/
package perffarm

import "time"

const (
	ShortDateFormat = "2006-01-02"

	ServiceName = "perffarm"

	DefaultServicePort = 3000
	DefaultRPCAddress  = "localhost:2289"
	DefaultQueueSize   = 1024

	DefaultDialTimeout   = 2 * time.Second
	DefaultSocketTimeout = time.Minute
)

// BuildRevision stores the commit in the git repository at build time and is
// specified with -ldflags at build time.
var BuildRevision = ""
