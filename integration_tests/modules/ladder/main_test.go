//go:build integration

package ladder_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/Black-And-White-Club/club-ladder/integration_tests/testutils"
)

var env *testutils.TestEnvironment

func TestMain(m *testing.M) {
	var err error
	env, err = testutils.NewTestEnvironment(context.Background())
	if err != nil {
		log.Fatalf("failed to set up test environment: %v", err)
	}
	code := m.Run()
	env.Terminate()
	os.Exit(code)
}
