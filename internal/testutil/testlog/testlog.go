package testlog

import (
	"testing"

	"github.com/danmuck/notesctl/internal/logging"
	"github.com/danmuck/notesctl/internal/logs"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logs.Infof("test=%s", t.Name())
}
