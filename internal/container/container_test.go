package container_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgrunder/contagion/internal/container"
)

func TestEnterLeaveKeepsOrder(t *testing.T) {
	c := container.New("work_1", container.Facility, 0, 4)

	c.Enter(3, 100, "work")
	c.Enter(1, 150, "work")
	c.Enter(2, 200, "work")

	require.Equal(t, 3, c.Size())
	require.Equal(t, []int32{3, 1, 2}, ids(c))

	c.Leave(1)
	require.Equal(t, 2, c.Size())
	require.Equal(t, []int32{3, 2}, ids(c))
	require.False(t, c.Contains(1))
	require.True(t, c.Contains(3))
}

func ids(c *container.Container) []int32 {
	out := make([]int32, 0, c.Size())
	for _, id := range c.Occupants() {
		out = append(out, int32(id))
	}
	return out
}

func TestDuplicateEnterIsIgnored(t *testing.T) {
	c := container.New("home_1", container.Facility, 0, 1)

	c.Enter(1, 100, "home")
	c.Enter(1, 500, "home")

	require.Equal(t, 1, c.Size())
	enter, ok := c.EnteredAt(1)
	require.True(t, ok)
	require.Equal(t, 100.0, enter)
}

func TestMaxGroupSizeIsHighWaterMark(t *testing.T) {
	c := container.New("leis_1", container.Facility, 0, 1)

	c.Enter(1, 0, "leisure")
	c.Enter(2, 0, "leisure")
	c.Enter(3, 0, "leisure")
	c.Leave(2)
	c.Leave(3)

	require.Equal(t, 1, c.Size())
	require.Equal(t, 3, c.MaxGroupSize())
}

func TestPerformedActivity(t *testing.T) {
	c := container.New("home_1", container.Facility, 0, 1)

	c.Enter(1, 0, "home")
	require.Equal(t, "home", c.PerformedActivity(1))
	require.Equal(t, "", c.PerformedActivity(2))
}

func TestEnterTripRecordsSurroundingActivities(t *testing.T) {
	c := container.New("pt_1", container.Vehicle, 50, 1)

	c.EnterTrip(1, 7*3600, "home", "work")
	require.Equal(t, "pt", c.PerformedActivity(1))

	prev, next := c.TripActivities(1)
	require.Equal(t, "home", prev)
	require.Equal(t, "work", next)
	require.Equal(t, 50, c.TypicalCapacity())
}

func TestSpacesFloorAtOne(t *testing.T) {
	c := container.New("x", container.Facility, 0, 0)
	require.Equal(t, 1.0, c.Spaces())
}

func TestClear(t *testing.T) {
	c := container.New("work_1", container.Facility, 0, 4)

	c.Enter(1, 0, "work")
	c.Enter(2, 0, "work")
	c.Clear()

	require.Zero(t, c.Size())
	require.Empty(t, c.Occupants())
	// the high-water mark survives the daily reset
	require.Equal(t, 2, c.MaxGroupSize())
}

func TestLeaveUnknownIsNoop(t *testing.T) {
	c := container.New("work_1", container.Facility, 0, 4)
	c.Enter(1, 0, "work")
	c.Leave(99)
	require.Equal(t, 1, c.Size())
}
