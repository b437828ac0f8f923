package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) ExpireDue(ctx context.Context) (int64, int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, 0, f.err
	}
	return 2, 2, nil
}

func TestNewService_InvalidSpec(t *testing.T) {
	_, err := NewService(&fakeSweeper{}, "every now and then")
	assert.Error(t, err)
}

func TestNewService_Descriptor(t *testing.T) {
	s, err := NewService(&fakeSweeper{}, "@hourly")
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestRunNow(t *testing.T) {
	sweeper := &fakeSweeper{}
	s, err := NewService(sweeper, "*/5 * * * *")
	require.NoError(t, err)

	s.RunNow()
	assert.Equal(t, int32(1), sweeper.calls.Load())

	// 失败只记录日志
	sweeper.err = errors.New("db gone")
	s.RunNow()
	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestStartStop(t *testing.T) {
	s, err := NewService(&fakeSweeper{}, "@daily")
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
