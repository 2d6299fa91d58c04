package main

import (
	"bytes"

	"github.com/fatih/color"
	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs blepool commands against a fresh command tree.
type CommandTestSuite struct {
	suite.Suite
	originalNoColor bool
}

func (s *CommandTestSuite) SetupSuite() {
	s.originalNoColor = color.NoColor
	color.NoColor = true
}

func (s *CommandTestSuite) TearDownSuite() {
	color.NoColor = s.originalNoColor
}

// ExecuteCommand runs blepool with args, returns stdout and error.
// Log output goes to a separate buffer so it never pollutes the rendered result.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
