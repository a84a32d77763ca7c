package command

import (
	"github.com/kvgate/kvgate/internal/resp/bind"
	"github.com/kvgate/kvgate/pkg/optional"
)

// Auth authenticates the connection. The one-argument form carries
// only a password and implies the default user.
type Auth struct {
	Username optional.Value[string]
	Password string
}

func (*Auth) Name() string { return "AUTH" }

// decodeAuthUserPass matches AUTH <username> <password>. It is tried
// before the password-only form so that the two-argument frame binds
// both fields.
func decodeAuthUserPass(s *bind.Seq) (Command, error) {
	if err := marker(s, "AUTH"); err != nil {
		return nil, err
	}
	user, err := s.String()
	if err != nil {
		return nil, err
	}
	pass, err := s.String()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Auth{Username: optional.Some(user), Password: pass}, nil
}

// decodeAuthPass matches AUTH <password>.
func decodeAuthPass(s *bind.Seq) (Command, error) {
	if err := marker(s, "AUTH"); err != nil {
		return nil, err
	}
	pass, err := s.String()
	if err != nil {
		return nil, err
	}
	if err := s.Done(); err != nil {
		return nil, err
	}
	return &Auth{Password: pass}, nil
}
