package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
)

// Get reads the value stored at a key.
type Get struct {
	Key string
}

func (*Get) Name() string { return "GET" }

func decodeGet(s *bind.Seq) (Command, error) {
	if err := marker(s, "GET"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Get{Key: key}, nil
}

// GetDel reads the value stored at a key and removes it in the same
// transaction.
type GetDel struct {
	Key string
}

func (*GetDel) Name() string { return "GETDEL" }

func decodeGetDel(s *bind.Seq) (Command, error) {
	if err := marker(s, "GETDEL"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &GetDel{Key: key}, nil
}
