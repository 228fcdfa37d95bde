package domain

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLookupField(t *testing.T) {
	for in, want := range map[string]LookupField{
		"":          LookupByID,
		"id":        LookupByID,
		"name":      LookupByName,
		"subdomain": LookupBySubdomain,
	} {
		got, err := ParseLookupField(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseLookupField("Name")
	assert.ErrorIs(t, err, ErrInvalidLookupField)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeployment_Versions(t *testing.T) {
	d := &Deployment{Versions: []*Version{
		{Version: "v1"},
		{Version: "v2", Active: true},
	}}

	assert.Equal(t, []string{"v1", "v2"}, d.VersionLabels())
	require.NotNil(t, d.ActiveVersion())
	assert.Equal(t, "v2", d.ActiveVersion().Version)
	assert.True(t, d.HasVersion("v1"))
	assert.False(t, d.HasVersion("v3"))

	empty := &Deployment{}
	assert.Nil(t, empty.ActiveVersion())
	assert.Equal(t, []string{}, empty.VersionLabels())
}

func TestErrorKinds(t *testing.T) {
	ioErr := &IOError{Op: "write file", Path: "/srv/sites/blog/v1/index.html", Err: os.ErrPermission}
	assert.ErrorIs(t, ioErr, ErrIO)
	assert.ErrorIs(t, ioErr, os.ErrPermission)

	partial := &PartialFailureError{DeploymentID: "d1", Version: "v2", Step: "latest pointer update", Err: ioErr}
	assert.ErrorIs(t, partial, ErrPartialFailure)
	assert.ErrorIs(t, partial, ErrIO)
	assert.Contains(t, partial.Error(), "latest pointer update")

	var fe error = &FieldError{Field: "subdomain", Message: "bad"}
	assert.ErrorIs(t, fe, ErrValidation)
	assert.Equal(t, "invalid subdomain: bad", fe.Error())

	assert.True(t, errors.Is(ErrNameConflict, ErrConflict))
	assert.True(t, errors.Is(ErrVersionNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrVersionNotFound, ErrDeploymentNotFound))
}
