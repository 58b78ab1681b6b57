package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpTarget(t *testing.T) {
	opts := DefaultOptions()

	target, ok := upTarget(opts, Status{Empty: true})
	assert.True(t, ok)
	assert.Equal(t, uint(1), target)

	_, ok = upTarget(opts, Status{Version: 1})
	assert.False(t, ok, "schema already current")

	_, ok = upTarget(opts, Status{Version: 2})
	assert.False(t, ok, "seed data already applied is left alone")

	opts.Seed = true
	target, ok = upTarget(opts, Status{Version: 1})
	assert.True(t, ok)
	assert.Zero(t, target, "seeding runs every file")
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "no migrations applied", Status{Empty: true}.String())
	assert.Equal(t, "version 2 (dirty)", Status{Version: 2, Dirty: true}.String())
	assert.Equal(t, "version 1", Status{Version: 1}.String())
}
