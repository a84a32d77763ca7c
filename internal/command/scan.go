package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// Scan walks the keyspace incrementally. Cursor is the opaque token
// from the previous reply, "0" to start; Match filters keys by glob
// pattern and Count hints at the batch size.
type Scan struct {
	Cursor string
	Match  optional.Value[string]
	Count  optional.Value[uint64]
}

func (*Scan) Name() string { return "SCAN" }

func decodeScan(s *bind.Seq) (Command, error) {
	if err := marker(s, "SCAN"); err != nil {
		return nil, err
	}
	cursor, err := s.String()
	if err != nil {
		return nil, err
	}
	cmd := &Scan{Cursor: cursor}
	err = bind.CollectOptions(s,
		bind.Slot{Name: "match", Decode: func(s *bind.Seq) error {
			if err := s.Marker("MATCH"); err != nil {
				return err
			}
			pat, err := s.String()
			if err != nil {
				return err
			}
			cmd.Match = optional.Some(pat)
			return nil
		}},
		bind.Slot{Name: "count", Decode: func(s *bind.Seq) error {
			if err := s.Marker("COUNT"); err != nil {
				return err
			}
			n, err := s.Uint64()
			if err != nil {
				return err
			}
			cmd.Count = optional.Some(n)
			return nil
		}},
	)
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return cmd, nil
}
