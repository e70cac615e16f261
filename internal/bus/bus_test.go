package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnEmitOff(t *testing.T) {
	b := New()
	var got []any
	off := b.On(Navigate, func(p any) { got = append(got, p) })
	b.On(Changed, func(any) { t.Fatal("wrong event") })

	idx := 2
	b.Emit(Navigate, NavigateMsg{Index: &idx})
	assert.Len(t, got, 1)
	assert.Equal(t, 1, b.Listeners(Navigate))
	assert.Equal(t, 2, b.Total())

	off()
	off()
	b.Emit(Navigate, NavigateMsg{ID: "x"})
	assert.Len(t, got, 1)
	assert.Equal(t, 0, b.Listeners(Navigate))
	assert.Equal(t, 1, b.Total())
}

func TestHandlerMayUnsubscribeItself(t *testing.T) {
	b := New()
	n := 0
	var off func()
	off = b.On(Diag, func(any) {
		n++
		off()
	})
	b.Emit(Diag, nil)
	b.Emit(Diag, nil)
	assert.Equal(t, 1, n)
}

func TestPanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := New()
	n := 0
	b.On(Changed, func(any) { panic("boom") })
	b.On(Changed, func(any) { n++ })
	assert.NotPanics(t, func() { b.Emit(Changed, ChangedMsg{Index: 1}) })
	assert.Equal(t, 1, n)
}
