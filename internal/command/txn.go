package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
)

// Multi opens a queued transaction on the connection.
type Multi struct{}

func (*Multi) Name() string { return "MULTI" }

func decodeMulti(s *bind.Seq) (Command, error) {
	if err := marker(s, "MULTI"); err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Multi{}, nil
}

// Exec runs the queued transaction atomically.
type Exec struct{}

func (*Exec) Name() string { return "EXEC" }

func decodeExec(s *bind.Seq) (Command, error) {
	if err := marker(s, "EXEC"); err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Exec{}, nil
}

// Discard abandons the queued transaction.
type Discard struct{}

func (*Discard) Name() string { return "DISCARD" }

func decodeDiscard(s *bind.Seq) (Command, error) {
	if err := marker(s, "DISCARD"); err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Discard{}, nil
}

// Watch marks keys whose modification before EXEC aborts the
// transaction.
type Watch struct {
	Keys []string
}

func (*Watch) Name() string { return "WATCH" }

func decodeWatch(s *bind.Seq) (Command, error) {
	if err := marker(s, "WATCH"); err != nil {
		return nil, err
	}
	keys, err := s.Strings(1)
	if err != nil {
		return nil, err
	}
	return &Watch{Keys: keys}, nil
}

// Unwatch clears all watched keys.
type Unwatch struct{}

func (*Unwatch) Name() string { return "UNWATCH" }

func decodeUnwatch(s *bind.Seq) (Command, error) {
	if err := marker(s, "UNWATCH"); err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Unwatch{}, nil
}
