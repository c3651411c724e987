package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCronTime(t *testing.T) {
	from := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) // a Monday

	next, err := NextCronTime("0 9 * * 1", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), next)

	// Already past today's slot; rolls to next Monday.
	next, err = NextCronTime("0 9 * * 1", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC), next)
}

func TestNextCronTime_Invalid(t *testing.T) {
	_, err := NextCronTime("not a cron expr", time.Now())
	assert.Error(t, err)
}

func TestValidateCronExpr(t *testing.T) {
	assert.NoError(t, ValidateCronExpr("*/15 * * * *"))
	assert.NoError(t, ValidateCronExpr("0 9 * * 1-5"))
	assert.Error(t, ValidateCronExpr(""))
	assert.Error(t, ValidateCronExpr("61 * * * *"))
	assert.Error(t, ValidateCronExpr("@every"))
}
