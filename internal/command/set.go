package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// Existence restricts when SET may write.
type Existence int

const (
	// IfAbsent writes only when the key does not exist (NX).
	IfAbsent Existence = iota
	// IfPresent writes only when the key already exists (XX).
	IfPresent
)

func (e Existence) String() string {
	if e == IfAbsent {
		return "NX"
	}
	return "XX"
}

// ExpiryKind selects how an expiry argument is interpreted.
type ExpiryKind int

const (
	// ExpirySeconds is a relative lifetime in seconds (EX).
	ExpirySeconds ExpiryKind = iota
	// ExpiryMillis is a relative lifetime in milliseconds (PX).
	ExpiryMillis
	// ExpiryUnixSeconds is an absolute unix timestamp in seconds (EXAT).
	ExpiryUnixSeconds
	// ExpiryUnixMillis is an absolute unix timestamp in milliseconds (PXAT).
	ExpiryUnixMillis
	// ExpiryKeep retains whatever TTL the key already has (KEEPTTL).
	ExpiryKeep
)

func (k ExpiryKind) String() string {
	switch k {
	case ExpirySeconds:
		return "EX"
	case ExpiryMillis:
		return "PX"
	case ExpiryUnixSeconds:
		return "EXAT"
	case ExpiryUnixMillis:
		return "PXAT"
	default:
		return "KEEPTTL"
	}
}

// Expiry is one parsed expiry option. Value is unused for ExpiryKeep.
type Expiry struct {
	Kind  ExpiryKind
	Value uint64
}

// SetOptions carries the optional modifiers of a SET command. Each
// field corresponds to one option slot and may be given at most once,
// in any order.
type SetOptions struct {
	Existence optional.Value[Existence]
	Get       bool
	Expiry    optional.Value[Expiry]
}

func (o *SetOptions) slots() []bind.Slot {
	return []bind.Slot{
		{Name: "existence", Decode: func(s *bind.Seq) error {
			v, err := bind.ResolveFirst(s,
				bind.Candidate[Existence]{Name: "NX", Decode: func(s *bind.Seq) (Existence, error) {
					return IfAbsent, s.Marker("NX")
				}},
				bind.Candidate[Existence]{Name: "XX", Decode: func(s *bind.Seq) (Existence, error) {
					return IfPresent, s.Marker("XX")
				}},
			)
			if err != nil {
				return err
			}
			o.Existence = optional.Some(v)
			return nil
		}},
		{Name: "get", Decode: func(s *bind.Seq) error {
			if err := s.Marker("GET"); err != nil {
				return err
			}
			o.Get = true
			return nil
		}},
		{Name: "expiry", Decode: func(s *bind.Seq) error {
			v, err := bind.ResolveFirst(s,
				expiryArg("EX", ExpirySeconds),
				expiryArg("PX", ExpiryMillis),
				expiryArg("EXAT", ExpiryUnixSeconds),
				expiryArg("PXAT", ExpiryUnixMillis),
				bind.Candidate[Expiry]{Name: "KEEPTTL", Decode: func(s *bind.Seq) (Expiry, error) {
					return Expiry{Kind: ExpiryKeep}, s.Marker("KEEPTTL")
				}},
			)
			if err != nil {
				return err
			}
			o.Expiry = optional.Some(v)
			return nil
		}},
	}
}

// expiryArg matches a marker followed by one unsigned integer argument.
func expiryArg(name string, kind ExpiryKind) bind.Candidate[Expiry] {
	return bind.Candidate[Expiry]{Name: name, Decode: func(s *bind.Seq) (Expiry, error) {
		if err := s.Marker(name); err != nil {
			return Expiry{}, err
		}
		v, err := s.Uint64()
		if err != nil {
			return Expiry{}, err
		}
		return Expiry{Kind: kind, Value: v}, nil
	}}
}

// Set writes a value at a key, subject to the parsed modifiers.
type Set struct {
	Key     string
	Value   string
	Options SetOptions
}

func (*Set) Name() string { return "SET" }

func decodeSet(s *bind.Seq) (Command, error) {
	if err := marker(s, "SET"); err != nil {
		return nil, err
	}
	key, err := s.String()
	if err != nil {
		return nil, err
	}
	value, err := s.String()
	if err != nil {
		return nil, err
	}
	cmd := &Set{Key: key, Value: value}
	if err := bind.CollectOptions(s, cmd.Options.slots()...); err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return cmd, nil
}
