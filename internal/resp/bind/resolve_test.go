package bind

import (
	"errors"
	"testing"

	"github.com/kvgate/kvgate/internal/resp"
	"github.com/kvgate/kvgate/pkg/optional"
)

// ============================================================================
// Untagged Resolution Tests
// ============================================================================

// twoArg and oneArg mirror the AUTH grammar: an optional leading field
// resolved by trying the longer shape first.
type authShape struct {
	user optional.Value[string]
	pass string
}

func authCandidates() []Candidate[authShape] {
	return []Candidate[authShape]{
		{Name: "user+pass", Decode: func(s *Seq) (authShape, error) {
			var a authShape
			if err := s.Marker("AUTH"); err != nil {
				return a, err
			}
			u, err := s.String()
			if err != nil {
				return a, err
			}
			p, err := s.String()
			if err != nil {
				return a, err
			}
			if err := s.Done(); err != nil {
				return a, err
			}
			a.user = optional.Some(u)
			a.pass = p
			return a, nil
		}},
		{Name: "pass", Decode: func(s *Seq) (authShape, error) {
			var a authShape
			if err := s.Marker("AUTH"); err != nil {
				return a, err
			}
			p, err := s.String()
			if err != nil {
				return a, err
			}
			if err := s.Done(); err != nil {
				return a, err
			}
			a.pass = p
			return a, nil
		}},
	}
}

func TestResolveFirstPicksLongerShape(t *testing.T) {
	d := FromBytes([]byte("*3\r\n$4\r\nAUTH\r\n$1\r\nc\r\n$1\r\ng\r\n"))
	s, err := d.CountedSeq()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ResolveFirst(s, authCandidates()...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u, ok := got.user.Get(); !ok || u != "c" || got.pass != "g" {
		t.Errorf("got %+v", got)
	}
	if s.More() {
		t.Error("resolution left elements unconsumed")
	}
}

func TestResolveFirstFallsThrough(t *testing.T) {
	d := FromBytes([]byte("*2\r\n$4\r\nAUTH\r\n$1\r\ng\r\n"))
	s, err := d.CountedSeq()
	if err != nil {
		t.Fatal(err)
	}
	got, err := ResolveFirst(s, authCandidates()...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.user.IsSome() || got.pass != "g" {
		t.Errorf("got %+v", got)
	}
}

func TestResolveFirstCommitsExactConsumption(t *testing.T) {
	// After resolving the first element group, the sequence must sit
	// exactly on the next element.
	d := FromBytes([]byte("*3\r\n$2\r\nEX\r\n$2\r\n10\r\n$4\r\nrest\r\n"))
	s, err := d.CountedSeq()
	if err != nil {
		t.Fatal(err)
	}

	type expiry struct{ secs uint64 }
	got, err := ResolveFirst(s,
		Candidate[expiry]{Name: "EX", Decode: func(s *Seq) (expiry, error) {
			if err := s.Marker("EX"); err != nil {
				return expiry{}, err
			}
			n, err := s.Uint64()
			if err != nil {
				return expiry{}, err
			}
			return expiry{secs: n}, nil
		}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.secs != 10 {
		t.Errorf("secs = %d", got.secs)
	}
	if s.Remaining() != 1 {
		t.Fatalf("Remaining = %d, want 1", s.Remaining())
	}
	next, err := s.String()
	if err != nil || next != "rest" {
		t.Errorf("next element = (%q, %v)", next, err)
	}
}

func TestResolveFirstDeclarationOrderTieBreak(t *testing.T) {
	// Both candidates accept any string; the first declared must win.
	d := FromBytes([]byte("*1\r\n$2\r\nhi\r\n"))
	s, err := d.CountedSeq()
	if err != nil {
		t.Fatal(err)
	}
	str := func(s *Seq) (string, error) { return s.String() }
	got, err := ResolveFirst(s,
		Candidate[string]{Name: "first", Decode: func(s *Seq) (string, error) {
			v, err := str(s)
			return "first:" + v, err
		}},
		Candidate[string]{Name: "second", Decode: func(s *Seq) (string, error) {
			v, err := str(s)
			return "second:" + v, err
		}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first:hi" {
		t.Errorf("got %q, want %q", got, "first:hi")
	}
}

func TestResolveFirstIncompleteAborts(t *testing.T) {
	// The first candidate would need the second argument, whose bytes are
	// cut off. Resolution must report Incomplete rather than committing
	// the shorter candidate on a prefix of the input.
	d := FromBytes([]byte("*3\r\n$4\r\nAUTH\r\n$1\r\nc\r\n$1"))
	s, err := d.CountedSeq()
	if err != nil {
		t.Fatal(err)
	}
	_, err = ResolveFirst(s, authCandidates()...)
	if !errors.Is(err, resp.ErrIncomplete) {
		t.Fatalf("error = %v, want ErrIncomplete", err)
	}
}

func TestResolveFirstAggregatesFailures(t *testing.T) {
	d := FromBytes([]byte("*2\r\n$7\r\nFLUSHME\r\n$1\r\nx\r\n"))
	s, err := d.CountedSeq()
	if err != nil {
		t.Fatal(err)
	}
	_, err = ResolveFirst(s, authCandidates()...)

	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("error %v does not carry *NoMatchError", err)
	}
	if !errors.Is(err, ErrNoMatch) {
		t.Error("error does not match ErrNoMatch")
	}
	if len(nm.Candidates) != 2 {
		t.Fatalf("aggregate holds %d failures, want 2", len(nm.Candidates))
	}
	if nm.Candidates[0].Name != "user+pass" || nm.Candidates[1].Name != "pass" {
		t.Errorf("candidate order: %q, %q", nm.Candidates[0].Name, nm.Candidates[1].Name)
	}
	for _, c := range nm.Candidates {
		if !errors.Is(c.Err, ErrNameMismatch) {
			t.Errorf("candidate %s error = %v, want name mismatch", c.Name, c.Err)
		}
	}

	// The failed resolution must not have consumed anything.
	if s.Remaining() != 2 {
		t.Errorf("Remaining = %d, want 2", s.Remaining())
	}
}

// ============================================================================
// Option Collection Tests
// ============================================================================

type setLikeOpts struct {
	existence optional.Value[string] // "NX" or "XX"
	get       bool
	expiry    optional.Value[uint64]
}

func (o *setLikeOpts) slots() []Slot {
	return []Slot{
		{Name: "existence", Decode: func(s *Seq) error {
			v, err := ResolveFirst(s,
				Candidate[string]{Name: "NX", Decode: func(s *Seq) (string, error) {
					return "NX", s.Marker("NX")
				}},
				Candidate[string]{Name: "XX", Decode: func(s *Seq) (string, error) {
					return "XX", s.Marker("XX")
				}},
			)
			if err != nil {
				return err
			}
			o.existence = optional.Some(v)
			return nil
		}},
		{Name: "GET", Decode: func(s *Seq) error {
			if err := s.Marker("GET"); err != nil {
				return err
			}
			o.get = true
			return nil
		}},
		{Name: "expiry", Decode: func(s *Seq) error {
			if err := s.Marker("EX"); err != nil {
				return err
			}
			n, err := s.Uint64()
			if err != nil {
				return err
			}
			o.expiry = optional.Some(n)
			return nil
		}},
	}
}

func collectFrom(t *testing.T, input string) (*setLikeOpts, *Seq, error) {
	t.Helper()
	d := FromBytes([]byte(input))
	s, err := d.CountedSeq()
	if err != nil {
		t.Fatal(err)
	}
	opts := &setLikeOpts{}
	return opts, s, CollectOptions(s, opts.slots()...)
}

func TestCollectOptionsFillsSlots(t *testing.T) {
	opts, s, err := collectFrom(t, "*4\r\n$2\r\nNX\r\n$3\r\nGET\r\n$2\r\nEX\r\n$2\r\n10\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := opts.existence.Get(); v != "NX" {
		t.Errorf("existence = %v", opts.existence)
	}
	if !opts.get {
		t.Error("get flag not set")
	}
	if v, _ := opts.expiry.Get(); v != 10 {
		t.Errorf("expiry = %v", opts.expiry)
	}
	if s.More() {
		t.Error("collection left elements unconsumed")
	}
}

func TestCollectOptionsOrderIndependent(t *testing.T) {
	opts, _, err := collectFrom(t, "*3\r\n$2\r\nEX\r\n$2\r\n10\r\n$2\r\nXX\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := opts.existence.Get(); v != "XX" {
		t.Errorf("existence = %v", opts.existence)
	}
	if v, _ := opts.expiry.Get(); v != 10 {
		t.Errorf("expiry = %v", opts.expiry)
	}
}

func TestCollectOptionsDuplicateSlot(t *testing.T) {
	// NX and XX fill the same slot; supplying both is a duplicate.
	_, _, err := collectFrom(t, "*2\r\n$2\r\nNX\r\n$2\r\nXX\r\n")
	var dup *DuplicateOptionError
	if !errors.As(err, &dup) {
		t.Fatalf("error %v does not carry *DuplicateOptionError", err)
	}
	if dup.Name != "existence" {
		t.Errorf("slot = %q", dup.Name)
	}
	if !errors.Is(err, ErrDuplicateOption) {
		t.Error("error does not match ErrDuplicateOption")
	}
}

func TestCollectOptionsStopsOnUnknown(t *testing.T) {
	opts, s, err := collectFrom(t, "*2\r\n$2\r\nNX\r\n$7\r\nMYSTERY\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := opts.existence.Get(); v != "NX" {
		t.Errorf("existence = %v", opts.existence)
	}
	if s.Remaining() != 1 {
		t.Errorf("Remaining = %d, want 1 (unknown element left for caller)", s.Remaining())
	}
}

func TestCollectOptionsEmptyInput(t *testing.T) {
	opts, _, err := collectFrom(t, "*0\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.existence.IsSome() || opts.get || opts.expiry.IsSome() {
		t.Errorf("options populated from empty input: %+v", opts)
	}
}

func TestCollectOptionsIncompleteValue(t *testing.T) {
	d := FromBytes([]byte("*2\r\n$2\r\nEX\r\n$2\r\n1"))
	s, err := d.CountedSeq()
	if err != nil {
		t.Fatal(err)
	}
	opts := &setLikeOpts{}
	if err := CollectOptions(s, opts.slots()...); !errors.Is(err, resp.ErrIncomplete) {
		t.Fatalf("error = %v, want ErrIncomplete", err)
	}
}
