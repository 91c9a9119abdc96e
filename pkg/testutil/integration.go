package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite gives each test a fresh working directory and a
// context bounded by the suite timeout
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	s.T().Logf("integration suite completed in %v", time.Since(s.startTime))
}

// SetupTest creates the working directory of one test
func (s *IntegrationTestSuite) SetupTest() {
	dir, err := os.MkdirTemp("", "bolasso-test-*")
	require.NoError(s.T(), err)
	s.tempDir = dir
}

// TearDownTest removes the working directory
func (s *IntegrationTestSuite) TearDownTest() {
	if s.tempDir != "" {
		_ = os.RemoveAll(s.tempDir)
	}
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// Path returns name joined to the working directory
func (s *IntegrationTestSuite) Path(name string) string {
	return filepath.Join(s.tempDir, name)
}

// CreateTempFile writes content to name in the working directory
func (s *IntegrationTestSuite) CreateTempFile(name, content string) string {
	return WriteFile(s.T(), s.tempDir, name, content)
}

// ReadTempFile reads name from the working directory
func (s *IntegrationTestSuite) ReadTempFile(name string) string {
	return ReadFile(s.T(), s.Path(name))
}

// IntegrationTest skips end-to-end tests in short mode
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
