package cache

import (
	"reflect"
	"testing"
	"time"

	"github.com/five82/layerscope/internal/backend"
)

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 2 << 30, false},
		{"2GiB", 2 << 30, false},
		{"500 MB", 500_000_000, false},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBudget(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("ParseBudget(%q) = %d,%v", tt.in, got, err)
		}
	}
}

func TestBudgetReportsLeastRecentlyUsed(t *testing.T) {
	clock := time.Unix(0, 0)
	b := New(1500)
	b.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	files := func(size string) []backend.Entry {
		return []backend.Entry{
			{Type: backend.EntryTypeFile, Size: size},
			{Type: backend.EntryTypeDirectory, Size: "..."},
		}
	}
	b.Record(Scope{Layer: "L0"}, files("1 KB"))
	b.Record(Scope{Layer: "L1"}, files("400 B"))
	if u := b.Usage(); u.Over() || len(u.Candidates) != 0 {
		t.Fatalf("under budget usage = %#v", u)
	}

	b.Record(Scope{Layer: "L1", Dir: "/usr"}, files("600 B"))
	b.Touch(Scope{Layer: "L0"})

	u := b.Usage()
	if u.Used != 2000 || !u.Over() {
		t.Fatalf("usage = %#v", u)
	}
	want := []Scope{{Layer: "L1"}, {Layer: "L1", Dir: "/usr"}}
	if !reflect.DeepEqual(u.Candidates, want) {
		t.Fatalf("candidates = %v, want %v", u.Candidates, want)
	}

	b.Record(Scope{Layer: "L1", Dir: "/usr"}, nil)
	if u := b.Usage(); u.Used != 1400 || u.Over() {
		t.Fatalf("re-recorded usage = %#v", u)
	}

	b.Reset()
	if u := b.Usage(); u.Used != 0 {
		t.Fatalf("usage after reset = %#v", u)
	}
}

func TestUnlimitedBudgetNeverOver(t *testing.T) {
	b := New(0)
	b.Record(Scope{Layer: "L0"}, []backend.Entry{{Type: backend.EntryTypeFile, Size: "1 GB"}})
	u := b.Usage()
	if u.Over() || u.String() != "954 MiB" {
		t.Fatalf("usage = %#v (%s)", u, u.String())
	}
}
