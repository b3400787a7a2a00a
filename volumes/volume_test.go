package volumes_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/michaelbeaumont/mayastor/tests"
)

type VolumeCreatorTestSuite struct {
	tests.VolumeCreatorTestSuite
}

func TestVolumeCreatorTestSuite(t *testing.T) {
	suite.Run(t, new(VolumeCreatorTestSuite))
}
