package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketOf(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{0, Bucket0},
		{25, Bucket0},
		{25.01, Bucket25},
		{50, Bucket25},
		{60, Bucket50},
		{75, Bucket50},
		{99.99, Bucket75},
		{100, Bucket100},
		{130, Bucket100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketOf(tt.pct), "BucketOf(%v)", tt.pct)
	}
}

func TestPayment_Percentage(t *testing.T) {
	p := Payment{ContractAmount: 10000000, PaidAmount: 2500000}
	assert.InDelta(t, 25, p.Percentage(), 0.0001)
	assert.Equal(t, int64(7500000), p.Remaining())

	assert.Zero(t, Payment{PaidAmount: 100}.Percentage(), "no contract")
}

func TestComputeStats(t *testing.T) {
	row := func(course, group int, contract, paid int64) Row {
		p := Payment{ContractAmount: contract, PaidAmount: paid}
		return Row{Payment: p, GroupID: group, CourseYear: course, Percent: p.Percentage()}
	}
	rows := []Row{
		row(2, 20, 100, 100),
		row(1, 10, 100, 30),
		row(1, 10, 100, 80),
		row(1, 11, 100, 10),
		row(0, 0, 100, 50), // no group
	}

	st := ComputeStats(rows)
	assert.Equal(t, int64(500), st.TotalContract)
	assert.Equal(t, int64(270), st.TotalPaid)
	assert.Equal(t, []CourseStats{
		{CourseYear: 1, Total: 3, Buckets: map[string]int{Bucket0: 1, Bucket25: 1, Bucket50: 0, Bucket75: 1, Bucket100: 0}},
		{CourseYear: 2, Total: 1, Buckets: map[string]int{Bucket0: 0, Bucket25: 0, Bucket50: 0, Bucket75: 0, Bucket100: 1}},
	}, st.ByCourse)

	empty := ComputeStats(nil)
	assert.Zero(t, empty.TotalPaid)
	assert.NotNil(t, empty.ByCourse)
	assert.Empty(t, empty.ByCourse)
}
