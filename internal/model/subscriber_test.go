package model

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "already normalized", raw: "+254700000001", want: "+254700000001"},
		{name: "formatting stripped", raw: "+254 (700) 000-001", want: "+254700000001"},
		{name: "dots stripped", raw: "+1.555.000.0001", want: "+15550000001"},
		{name: "surrounding whitespace", raw: "  +254700000001 ", want: "+254700000001"},
		{name: "missing plus", raw: "254700000001", wantErr: true},
		{name: "plus not leading", raw: "00+254700000001", wantErr: true},
		{name: "too short", raw: "+1234567", wantErr: true},
		{name: "too long", raw: "+1234567890123456", wantErr: true},
		{name: "letters rejected", raw: "+2547abc00001", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tc.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSubscriberStatusValid(t *testing.T) {
	for _, s := range []SubscriberStatus{SubscriberActive, SubscriberInactive, SubscriberBlocked} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []SubscriberStatus{"", "deleted", "ACTIVE"} {
		if s.Valid() {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}
