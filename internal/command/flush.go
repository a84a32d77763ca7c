package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// FlushMode selects whether FLUSHDB blocks until the keyspace is gone.
type FlushMode int

const (
	// FlushAsync clears the keyspace in the background.
	FlushAsync FlushMode = iota
	// FlushSync clears the keyspace before replying.
	FlushSync
)

func (m FlushMode) String() string {
	if m == FlushAsync {
		return "ASYNC"
	}
	return "SYNC"
}

// FlushDB removes every key in the database.
type FlushDB struct {
	Mode optional.Value[FlushMode]
}

func (*FlushDB) Name() string { return "FLUSHDB" }

func decodeFlushDB(s *bind.Seq) (Command, error) {
	if err := marker(s, "FLUSHDB"); err != nil {
		return nil, err
	}
	cmd := &FlushDB{}
	err := bind.CollectOptions(s, bind.Slot{Name: "mode", Decode: func(s *bind.Seq) error {
		m, err := bind.ResolveFirst(s,
			bind.Candidate[FlushMode]{Name: "ASYNC", Decode: func(s *bind.Seq) (FlushMode, error) {
				return FlushAsync, s.Marker("ASYNC")
			}},
			bind.Candidate[FlushMode]{Name: "SYNC", Decode: func(s *bind.Seq) (FlushMode, error) {
				return FlushSync, s.Marker("SYNC")
			}},
		)
		if err != nil {
			return err
		}
		cmd.Mode = optional.Some(m)
		return nil
	}})
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return cmd, nil
}
