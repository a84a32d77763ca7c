package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// Ping checks liveness; with a message it echoes it back.
type Ping struct {
	Message optional.Value[string]
}

func (*Ping) Name() string { return "PING" }

func decodePing(s *bind.Seq) (Command, error) {
	if err := marker(s, "PING"); err != nil {
		return nil, err
	}
	msg, err := bind.OptionItem(s, (*bind.Decoder).String)
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Ping{Message: msg}, nil
}

// Echo returns its message unchanged.
type Echo struct {
	Message string
}

func (*Echo) Name() string { return "ECHO" }

func decodeEcho(s *bind.Seq) (Command, error) {
	if err := marker(s, "ECHO"); err != nil {
		return nil, err
	}
	msg, err := s.String()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Echo{Message: msg}, nil
}

// Quit asks the server to close the connection after replying.
type Quit struct{}

func (*Quit) Name() string { return "QUIT" }

func decodeQuit(s *bind.Seq) (Command, error) {
	if err := marker(s, "QUIT"); err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Quit{}, nil
}
