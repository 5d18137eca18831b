package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "quotaguard/pkg/domain-errors"
)

type IDsSuite struct {
	suite.Suite
}

func TestIDsSuite(t *testing.T) {
	suite.Run(t, new(IDsSuite))
}

func (s *IDsSuite) TestNewTenantID() {
	a := NewTenantID()
	b := NewTenantID()

	s.True(strings.HasPrefix(a.String(), "tn_"))
	s.NotEqual(a, b, "minted tenant IDs must be unique")
}

func (s *IDsSuite) TestParseTenantID() {
	s.Run("accepts opaque strings", func() {
		id, err := ParseTenantID("tenant-from-provider-b")
		s.NoError(err)
		s.Equal(TenantID("tenant-from-provider-b"), id)
	})

	s.Run("trims whitespace", func() {
		id, err := ParseTenantID("  tn_abc  ")
		s.NoError(err)
		s.Equal(TenantID("tn_abc"), id)
	})

	s.Run("rejects empty", func() {
		_, err := ParseTenantID("   ")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *IDsSuite) TestParseUserID() {
	_, err := ParseUserID("")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	id, err := ParseUserID("auth0|12345")
	s.NoError(err)
	s.False(id.IsEmpty())
}
