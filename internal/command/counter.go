package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
)

// Incr adds one to the integer stored at a key.
type Incr struct {
	Key string
}

func (*Incr) Name() string { return "INCR" }

func decodeIncr(s *bind.Seq) (Command, error) {
	if err := marker(s, "INCR"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Incr{Key: key}, nil
}

// Decr subtracts one from the integer stored at a key.
type Decr struct {
	Key string
}

func (*Decr) Name() string { return "DECR" }

func decodeDecr(s *bind.Seq) (Command, error) {
	if err := marker(s, "DECR"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Decr{Key: key}, nil
}

// IncrBy adds a signed delta to the integer stored at a key.
type IncrBy struct {
	Key   string
	Delta int64
}

func (*IncrBy) Name() string { return "INCRBY" }

func decodeIncrBy(s *bind.Seq) (Command, error) {
	if err := marker(s, "INCRBY"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	delta, err := s.Int64()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &IncrBy{Key: key, Delta: delta}, nil
}

// DecrBy subtracts a signed delta from the integer stored at a key.
type DecrBy struct {
	Key   string
	Delta int64
}

func (*DecrBy) Name() string { return "DECRBY" }

func decodeDecrBy(s *bind.Seq) (Command, error) {
	if err := marker(s, "DECRBY"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	delta, err := s.Int64()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &DecrBy{Key: key, Delta: delta}, nil
}
