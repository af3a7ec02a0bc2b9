package cache

import (
	"context"
	"time"

	"github.com/24vibes/vibes/core"
)

// Nop never stores anything. Used when no Redis server is configured.
type Nop struct{}

var _ core.Cache = Nop{}

func (Nop) Get(context.Context, string, interface{}) (bool, error)        { return false, nil }
func (Nop) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (Nop) Incr(context.Context, string) (int64, error)                   { return 0, nil }
func (Nop) Delete(context.Context, ...string) error                       { return nil }
