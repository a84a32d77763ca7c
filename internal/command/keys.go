package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// Del removes one or more keys and reports how many existed.
type Del struct {
	Keys []string
}

func (*Del) Name() string { return "DEL" }

func decodeDel(s *bind.Seq) (Command, error) {
	if err := marker(s, "DEL"); err != nil {
		return nil, err
	}
	keys, err := s.Strings(1)
	if err != nil {
		return nil, err
	}
	return &Del{Keys: keys}, nil
}

// Exists counts how many of the given keys are present, counting
// repeated keys once per mention.
type Exists struct {
	Keys []string
}

func (*Exists) Name() string { return "EXISTS" }

func decodeExists(s *bind.Seq) (Command, error) {
	if err := marker(s, "EXISTS"); err != nil {
		return nil, err
	}
	keys, err := s.Strings(1)
	if err != nil {
		return nil, err
	}
	return &Exists{Keys: keys}, nil
}

// TTL reports the remaining lifetime of a key in seconds.
type TTL struct {
	Key string
}

func (*TTL) Name() string { return "TTL" }

func decodeTTL(s *bind.Seq) (Command, error) {
	if err := marker(s, "TTL"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &TTL{Key: key}, nil
}

// ExpireFlag restricts when EXPIRE may update a key's lifetime.
type ExpireFlag int

const (
	// ExpireIfNone sets the expiry only when the key has none (NX).
	ExpireIfNone ExpireFlag = iota
	// ExpireIfSome sets the expiry only when the key has one (XX).
	ExpireIfSome
	// ExpireIfGreater sets the expiry only when it is later than the
	// current one (GT).
	ExpireIfGreater
	// ExpireIfLess sets the expiry only when it is earlier than the
	// current one (LT).
	ExpireIfLess
)

func (f ExpireFlag) String() string {
	switch f {
	case ExpireIfNone:
		return "NX"
	case ExpireIfSome:
		return "XX"
	case ExpireIfGreater:
		return "GT"
	default:
		return "LT"
	}
}

// Expire sets a relative lifetime on a key, optionally guarded by a
// condition flag.
type Expire struct {
	Key     string
	Seconds int64
	Flag    optional.Value[ExpireFlag]
}

func (*Expire) Name() string { return "EXPIRE" }

func expireFlag(name string, flag ExpireFlag) bind.Candidate[ExpireFlag] {
	return bind.Candidate[ExpireFlag]{Name: name, Decode: func(s *bind.Seq) (ExpireFlag, error) {
		return flag, s.Marker(name)
	}}
}

func decodeExpire(s *bind.Seq) (Command, error) {
	if err := marker(s, "EXPIRE"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	secs, err := s.Int64()
	if err != nil {
		return nil, err
	}
	cmd := &Expire{Key: key, Seconds: secs}
	err = bind.CollectOptions(s, bind.Slot{Name: "condition", Decode: func(s *bind.Seq) error {
		f, err := bind.ResolveFirst(s,
			expireFlag("NX", ExpireIfNone),
			expireFlag("XX", ExpireIfSome),
			expireFlag("GT", ExpireIfGreater),
			expireFlag("LT", ExpireIfLess),
		)
		if err != nil {
			return err
		}
		cmd.Flag = optional.Some(f)
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
