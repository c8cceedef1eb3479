package arinc665

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Log is the injected process-wide logger. It defaults to discarding all
// output so the library is silent until a caller configures it.
var Log = logrus.New()

func init() {
	Log.SetOutput(io.Discard)
}
