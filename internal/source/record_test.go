package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroRecordIsPending(t *testing.T) {
	var r Record[int]
	assert.False(t, r.OK())
	assert.Equal(t, ReasonPending, r.Reason().Kind)
	assert.Equal(t, "pending", r.Status().Reason)
}

func TestOKRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := OK("payload", at)
	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, "payload", v)
	assert.Equal(t, at, r.FetchedAt())
	assert.Equal(t, Reason{}, r.Reason())
	assert.True(t, r.Status().OK)
}

func TestFailedAndDisabled(t *testing.T) {
	f := Failed[int](errors.New("boom"))
	assert.Equal(t, Reason{Kind: ReasonFailed, Detail: "boom"}, f.Reason())
	assert.Equal(t, "failed: boom", f.Reason().String())

	d := Disabled[int]("no api key")
	assert.Equal(t, ReasonDisabled, d.Reason().Kind)

	u := Unavailable[int](Reason{Detail: "x"})
	assert.Equal(t, ReasonFailed, u.Reason().Kind)
}

func TestCallRecoversPanic(t *testing.T) {
	a := Func("boom", func(ctx context.Context, now time.Time) Record[int] {
		panic("kaboom")
	})
	rec := Call(context.Background(), a, time.Now(), time.Second)
	assert.False(t, rec.OK())
	assert.Contains(t, rec.Reason().Detail, "kaboom")
}

func TestCallAppliesTimeout(t *testing.T) {
	a := Func("slow", func(ctx context.Context, now time.Time) Record[int] {
		<-ctx.Done()
		return Failed[int](ctx.Err())
	})
	rec := Call(context.Background(), a, time.Now(), 10*time.Millisecond)
	assert.Equal(t, ReasonFailed, rec.Reason().Kind)
	assert.Contains(t, rec.Reason().Detail, "deadline")
}
