package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"supachat/internal/app/user"
)

func TestUnprinted_OutOfOrderEventDoesNotReprintTail(t *testing.T) {
	base := time.Now()
	first := user.Message{ID: 1, Content: "first", CreatedAt: base.Add(time.Minute)}
	second := user.Message{ID: 2, Content: "second", CreatedAt: base.Add(2 * time.Minute)}

	printed := make(map[int64]struct{})

	fresh := unprinted(printed, []user.Message{first, second})
	require.Len(t, fresh, 2)

	// An event with an earlier timestamp sorts before the rows already on
	// screen; only it is new, nothing is printed twice.
	early := user.Message{ID: 3, Content: "early", CreatedAt: base}
	fresh = unprinted(printed, []user.Message{early, first, second})
	require.Len(t, fresh, 1)
	require.Equal(t, "early", fresh[0].Content)

	require.Empty(t, unprinted(printed, []user.Message{early, first, second}))
}
