package telegram

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/trashbot/internal/menu"
)

func TestCallbackToken(t *testing.T) {
	assert.Equal(t, "go_home", callbackToken("go_home"))
	assert.Equal(t, "go_home", callbackToken("\fgo_home"))
	assert.Equal(t, "go_home", callbackToken("\fgo_home|payload"))
	assert.Equal(t, "provider_take_abc", callbackToken(" provider_take_abc "))
}

func TestToReplyMarkup(t *testing.T) {
	assert.Nil(t, toReplyMarkup(nil))
	assert.Nil(t, toReplyMarkup(&menu.Markup{}))

	rm := toReplyMarkup(menu.Role())
	require.NotNil(t, rm)
	require.Len(t, rm.InlineKeyboard, 3)
	assert.Equal(t, menu.TokenRoleCustomer, rm.InlineKeyboard[0][0].Data)
	assert.Equal(t, menu.TokenGoBack, rm.InlineKeyboard[2][0].Data)
}

func TestDispatcherRunsJobsAndSwallowsErrors(t *testing.T) {
	d := NewDispatcher(SenderOptions{QueueSize: 4, Workers: 2}, nil)

	var ran atomic.Int32
	for i := 0; i < 8; i++ {
		d.Enqueue("text", func() error {
			ran.Add(1)
			return nil
		})
	}
	d.Enqueue("text", func() error {
		ran.Add(1)
		return errors.New("telegram said no")
	})
	d.Close()

	assert.Equal(t, int32(9), ran.Load())
}

func TestDispatcherSynchronousAfterClose(t *testing.T) {
	d := NewDispatcher(SenderOptions{QueueSize: 1, Workers: 1}, nil)
	d.Close()

	var ran bool
	d.Enqueue("text", func() error {
		ran = true
		return nil
	})
	assert.True(t, ran)
}
