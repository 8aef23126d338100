package crawlers

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
)

func TestWithTimeout(t *testing.T) {
	page := (&rod.Page{}).Context(context.Background())

	t.Run("结束时取消超时上下文", func(t *testing.T) {
		timed, cancel := withTimeout(page, time.Minute)
		ctx := timed.GetContext()
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		assert.NoError(t, ctx.Err())

		cancel()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("未设置超时", func(t *testing.T) {
		same, cancel := withTimeout(page, 0)
		defer cancel()
		assert.Same(t, page, same)
		_, hasDeadline := same.GetContext().Deadline()
		assert.False(t, hasDeadline)
	})
}
