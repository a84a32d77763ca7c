package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// HelloAuth is the credential pair of a HELLO ... AUTH option.
type HelloAuth struct {
	Username string
	Password string
}

// Hello negotiates the protocol version and optionally authenticates
// and names the connection in one round trip. ProtoVer is bound as
// given; validating it against the supported range is the executor's
// job so that an unsupported version yields a proper error reply
// instead of a parse failure.
type Hello struct {
	ProtoVer optional.Value[uint64]
	Auth     optional.Value[HelloAuth]
	SetName  optional.Value[string]
}

func (*Hello) Name() string { return "HELLO" }

func decodeHello(s *bind.Seq) (Command, error) {
	cmd := &Hello{}
	if err := marker(s, "HELLO"); err != nil {
		return nil, err
	}
	ver, err := bind.ResolveFirst(s,
		bind.Candidate[optional.Value[uint64]]{Name: "protover", Decode: func(s *bind.Seq) (optional.Value[uint64], error) {
			v, err := s.Uint64()
			if err != nil {
				return optional.None[uint64](), err
			}
			return optional.Some(v), nil
		}},
		bind.Candidate[optional.Value[uint64]]{Name: "none", Decode: func(s *bind.Seq) (optional.Value[uint64], error) {
			return optional.None[uint64](), nil
		}},
	)
	if err != nil {
		return nil, err
	}
	cmd.ProtoVer = ver
	err = bind.CollectOptions(s,
		bind.Slot{Name: "auth", Decode: func(s *bind.Seq) error {
			if err := s.Marker("AUTH"); err != nil {
				return err
			}
			user, err := s.String()
			if err != nil {
				return err
			}
			pass, err := s.String()
			if err != nil {
				return err
			}
			cmd.Auth = optional.Some(HelloAuth{Username: user, Password: pass})
			return nil
		}},
		bind.Slot{Name: "setname", Decode: func(s *bind.Seq) error {
			if err := s.Marker("SETNAME"); err != nil {
				return err
			}
			name, err := s.String()
			if err != nil {
				return err
			}
			cmd.SetName = optional.Some(name)
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
