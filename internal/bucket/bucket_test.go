package bucket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/callhour/internal/calllog"
)

func rec(phone string, hour, minute, duration int) calllog.CallRecord {
	return calllog.CallRecord{
		Phone:    phone,
		CallTime: calllog.TimeOfDay{Hour: hour, Minute: minute},
		Duration: duration,
	}
}

func TestCompute_EndToEndScenario(t *testing.T) {
	records := []calllog.CallRecord{
		rec("79990000000", 10, 0, 0),
		rec("79990000000", 14, 0, 45),
	}

	res, err := Compute(records, "79990000000")
	require.NoError(t, err)

	assert.Equal(t, []int{10}, res.Hours.Unanswered)
	assert.Equal(t, []int{14}, res.Hours.Successful)
	assert.Equal(t, []int{}, res.Hours.LowEngagement)
	assert.Len(t, res.Records, 2)
}

func TestCompute_SameHourAppearsInSeveralSets(t *testing.T) {
	records := []calllog.CallRecord{
		rec("1", 9, 5, 0),
		rec("1", 9, 40, 50),
	}

	res, err := Compute(records, "1")
	require.NoError(t, err)

	assert.Equal(t, []int{9}, res.Hours.Unanswered)
	assert.Equal(t, []int{9}, res.Hours.Successful)
	assert.Empty(t, res.Hours.LowEngagement)
}

func TestCompute_LowEngagementBoundaries(t *testing.T) {
	records := []calllog.CallRecord{
		rec("1", 8, 0, 1),
		rec("1", 11, 0, 10),
		rec("1", 12, 0, 11),
		rec("1", 8, 30, 3),
	}

	res, err := Compute(records, "1")
	require.NoError(t, err)

	assert.Equal(t, []int{8, 11}, res.Hours.LowEngagement)
	assert.Equal(t, []int{12}, res.Hours.Successful)
	assert.Empty(t, res.Hours.Unanswered)
}

func TestCompute_FiltersByExactPhone(t *testing.T) {
	records := []calllog.CallRecord{
		rec("79990000000", 10, 0, 0),
		rec("+79990000000", 11, 0, 30),
		rec("89990000000", 12, 0, 30),
	}

	res, err := Compute(records, "79990000000")
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, []int{10}, res.Hours.Unanswered)
	assert.Empty(t, res.Hours.Successful)
}

func TestCompute_NoDataForNumber(t *testing.T) {
	records := []calllog.CallRecord{rec("1", 10, 0, 0)}

	res, err := Compute(records, "2")
	assert.ErrorIs(t, err, ErrNoDataForNumber)
	assert.Nil(t, res)

	_, err = Compute(nil, "1")
	assert.ErrorIs(t, err, ErrNoDataForNumber)
}

func TestCompute_HoursSorted(t *testing.T) {
	records := []calllog.CallRecord{
		rec("1", 17, 0, 0),
		rec("1", 3, 0, 0),
		rec("1", 9, 0, 0),
		rec("1", 9, 15, 0),
	}

	res, err := Compute(records, "1")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 9, 17}, res.Hours.Unanswered)
}
