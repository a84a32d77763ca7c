package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// CommandInfo is the COMMAND introspection command. Clients send it
// (typically as COMMAND DOCS) during their handshake; Docs selects the
// documentation form and CommandName narrows the output to one command.
type CommandInfo struct {
	Docs        bool
	CommandName optional.Value[string]
}

func (*CommandInfo) Name() string { return "COMMAND" }

func decodeCommandInfo(s *bind.Seq) (Command, error) {
	if err := marker(s, "COMMAND"); err != nil {
		return nil, err
	}
	docs, err := bind.ResolveFirst(s,
		bind.Candidate[bool]{Name: "DOCS", Decode: func(s *bind.Seq) (bool, error) {
			return true, s.Marker("DOCS")
		}},
		bind.Candidate[bool]{Name: "none", Decode: func(s *bind.Seq) (bool, error) {
			return false, nil
		}},
	)
	if err != nil {
		return nil, err
	}
	cmd := &CommandInfo{Docs: docs}
	err = bind.CollectOptions(s, bind.Slot{Name: "command", Decode: func(s *bind.Seq) error {
		name, err := s.String()
		if err != nil {
			return err
		}
		cmd.CommandName = optional.Some(name)
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
